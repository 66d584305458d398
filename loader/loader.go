// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader reads, writes and downloads checkpoint files.
//
// This package wraps the internal loader implementation and exports a clean
// public API for checkpoint files in the SafeTensors and .born formats. The
// checkpoint configuration is stored as a JSON object under the "args"
// metadata key in both formats.
//
// Example usage:
//
//	import "github.com/erik-whiting/RNA-FM/loader"
//
//	// Model plus the "-contact-regression" file next to it, if any
//	model, regression, err := loader.LoadLocal("pretrained/RNA-FM_pretrained.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Inspect a file without loading every tensor
//	reader, err := loader.OpenModel("pretrained/RNA-FM_pretrained.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//	for _, name := range reader.TensorNames() {
//	    fmt.Println(name)
//	}
package loader

import (
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/loader"
)

// ModelFormat represents the checkpoint file format.
type ModelFormat = loader.ModelFormat

// Supported model formats.
const (
	FormatUnknown     ModelFormat = loader.FormatUnknown
	FormatSafeTensors ModelFormat = loader.FormatSafeTensors
	FormatBorn        ModelFormat = loader.FormatBorn
)

// ModelReader provides a unified interface over checkpoint files.
//
// Note: This is a type alias because LoadTensor returns the internal tensor
// type, which is re-exported by package tensor.
type ModelReader = loader.ModelReader

// Record is one deserialized checkpoint.
type Record = checkpoint.Record

// Hub downloads pretrained checkpoints and keeps them in a local cache.
type Hub = loader.Hub

// Errors returned by the file layer.
var (
	ErrUnsupportedFormat = loader.ErrUnsupportedFormat
	ErrMissingArgs       = loader.ErrMissingArgs
	ErrModelNotFound     = loader.ErrModelNotFound
)

// DefaultHubURL is the default base URL for pretrained checkpoints.
const DefaultHubURL = loader.DefaultHubURL

// OpenModel opens a checkpoint file, detecting the format from its extension.
func OpenModel(path string) (ModelReader, error) {
	return loader.OpenModel(path)
}

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) ModelFormat {
	return loader.DetectFormat(path)
}

// ReadCheckpoint reads a checkpoint file into a record.
func ReadCheckpoint(path string) (*Record, error) {
	return loader.ReadCheckpoint(path)
}

// WriteCheckpoint writes a record, choosing the format from the extension.
// .born files are written with a SHA-256 checksum of the tensor data.
func WriteCheckpoint(path string, rec *Record) error {
	return loader.WriteCheckpoint(path, rec)
}

// RegressionPath returns the path of the contact regression file that
// accompanies a model file.
func RegressionPath(path string) string {
	return loader.RegressionPath(path)
}

// LoadLocal reads a model file and, when present, its regression file.
// A missing regression file yields a nil regression record.
func LoadLocal(path string) (model, regression *Record, err error) {
	return loader.LoadLocal(path)
}
