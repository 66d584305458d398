// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fm loads pretrained RNA-FM and ESM checkpoints into model skeletons
// together with their token alphabets.
//
// Checkpoints saved under one of the legacy naming conventions
// (roberta_large, protein_bert_base, msa_transformer) are rewritten to the
// canonical parameter names, checked against the model's expected names and
// assigned. Contact regression weights are optional; without them the model
// loads with a warning.
//
// Example usage:
//
//	import "github.com/erik-whiting/RNA-FM/fm"
//
//	// Local checkpoint with the RNA alphabet
//	res, err := fm.RNAFM()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Model.Name(), res.Alphabet.Size())
//
//	// Pretrained checkpoint from the hub
//	res, err = fm.LoadModelAndAlphabet(ctx, fm.ESM1bT33650MUR50S)
package fm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/config"
	"github.com/erik-whiting/RNA-FM/internal/loader"
	"github.com/erik-whiting/RNA-FM/internal/model"
	"github.com/erik-whiting/RNA-FM/internal/pretrained"
	"github.com/erik-whiting/RNA-FM/internal/tokenizer"
)

// Record is one deserialized checkpoint: a configuration and named tensors.
type Record = checkpoint.Record

// Config is the configuration stored with a checkpoint.
type Config = checkpoint.Config

// StateDict maps parameter names to tensors.
type StateDict = checkpoint.StateDict

// CanonicalKey is the configuration field set on checkpoints written with
// canonical names. Those load without legacy rewriting.
const CanonicalKey = checkpoint.CanonicalKey

// Hub downloads and caches pretrained checkpoints.
type Hub = loader.Hub

// NewRecord creates a checkpoint record.
func NewRecord(cfg Config, params StateDict) *Record {
	return checkpoint.NewRecord(cfg, params)
}

// ErrMissingRegression is reported in Result.Warnings when no contact
// regression weights were supplied.
var ErrMissingRegression = pretrained.ErrMissingRegression

// Result is a loaded model with its alphabet.
type Result struct {
	Model    *model.Model
	Alphabet *tokenizer.Alphabet
	Arch     string
	Config   Config  // rewritten configuration
	Warnings []error // non-fatal problems, such as ErrMissingRegression
}

// options holds the settings applied by Option values.
type options struct {
	logger *zap.Logger
	theme  string
	arch   string
	hub    *Hub
}

// Option configures a load.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTheme selects the alphabet theme ("protein" or "rna"). The default is
// the architecture's theme.
func WithTheme(theme string) Option {
	return func(o *options) { o.theme = theme }
}

// WithArch overrides the architecture id recorded in the checkpoint.
func WithArch(id string) Option {
	return func(o *options) { o.arch = id }
}

// WithHub sets the hub used by LoadHub.
func WithHub(hub *Hub) Option {
	return func(o *options) { o.hub = hub }
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.hub == nil {
		o.hub = &Hub{
			BaseURL:  loader.DefaultHubURL,
			CacheDir: config.DefaultCacheDir(),
			Logger:   o.logger,
		}
	}
	return o
}

// Load builds a model from a primary checkpoint and optional contact
// regression weights. archID selects the legacy naming convention; theme ""
// selects the architecture's default alphabet theme.
func Load(primary, regression *Record, archID, theme string, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	res, err := pretrained.New(pretrained.WithLogger(o.logger)).Load(primary, regression, archID, theme)
	if err != nil {
		return nil, err
	}

	m, ok := res.Model.(*model.Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", res.Model)
	}
	a, ok := res.Vocabulary.(*tokenizer.Alphabet)
	if !ok {
		return nil, fmt.Errorf("unexpected vocabulary type %T", res.Vocabulary)
	}
	return &Result{
		Model:    m,
		Alphabet: a,
		Arch:     res.Descriptor.ID,
		Config:   res.Config,
		Warnings: res.Warnings,
	}, nil
}

// LoadRecords loads already deserialized records. The architecture comes
// from WithArch when set and from the primary record's "arch" field
// otherwise.
func LoadRecords(primary, regression *Record, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	archID := o.arch
	if archID == "" {
		if primary == nil {
			return nil, errors.New("primary checkpoint is nil")
		}
		id, err := primary.Arch()
		if err != nil {
			return nil, err
		}
		archID = id
	}
	return Load(primary, regression, archID, o.theme, WithLogger(o.logger))
}

// LoadLocal loads a checkpoint file (.safetensors or .born) and the
// "<stem>-contact-regression<ext>" file next to it when present.
func LoadLocal(path string, opts ...Option) (*Result, error) {
	primary, regression, err := loader.LoadLocal(path)
	if err != nil {
		return nil, err
	}
	return LoadRecords(primary, regression, opts...)
}

// LoadHub downloads (or reuses from the cache) a pretrained checkpoint and its
// contact regression weights, then loads them.
func LoadHub(ctx context.Context, name string, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	primary, regression, err := o.hub.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return LoadRecords(primary, regression, opts...)
}

// IsLocalPath reports whether nameOrPath names a checkpoint file rather than
// a hub model: it has a checkpoint extension or contains a path separator.
func IsLocalPath(nameOrPath string) bool {
	if loader.DetectFormat(nameOrPath) != loader.FormatUnknown {
		return true
	}
	return strings.ContainsRune(nameOrPath, '/') || strings.ContainsRune(nameOrPath, filepath.Separator)
}

// LoadModelAndAlphabet loads from a file when IsLocalPath reports a path and
// from the hub otherwise.
func LoadModelAndAlphabet(ctx context.Context, nameOrPath string, opts ...Option) (*Result, error) {
	if nameOrPath == "" {
		return nil, errors.New("model name is empty")
	}
	if IsLocalPath(nameOrPath) {
		return LoadLocal(nameOrPath, opts...)
	}
	return LoadHub(ctx, nameOrPath, opts...)
}

// Architectures returns the registered architecture ids.
func Architectures() []string {
	return arch.Default().IDs()
}

// Themes returns the available alphabet themes.
func Themes() []string {
	return tokenizer.Themes()
}

// Summary is a one-line description of a loaded model.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s): %d parameters, alphabet of %d tokens",
		r.Model.Name(), r.Arch, r.Model.Version(), r.Model.NumParameters(), r.Alphabet.Size())
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "; warning: %v", w)
	}
	return b.String()
}
