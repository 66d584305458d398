// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides the character alphabets of RNA-FM and ESM models.
//
// This package wraps the internal tokenizer implementation and provides a
// clean public API for tokenization tasks.
//
// Each alphabet is built from a theme (the standard tokens) and an
// architecture (the special tokens and their placement):
//   - protein_bert_base (ESM-1): <null_0> <pad> <eos> <unk> ... <cls> <mask> <sep>
//   - roberta_large (ESM-1b): <cls> <pad> <eos> <unk> ... <mask>
//   - msa_transformer: as ESM-1b, for multiple sequence alignments
//
// Example usage:
//
//	import "github.com/erik-whiting/RNA-FM/tokenizer"
//
//	alphabet, err := tokenizer.FromArchitecture("roberta_large", tokenizer.ThemeRNA)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := alphabet.Encode("ACGU<mask>")
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer

import (
	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/tokenizer"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// Alphabet maps tokens to indices for one architecture and theme.
type Alphabet = tokenizer.Alphabet

// UnknownThemeError is returned for a theme with no token list.
type UnknownThemeError = tokenizer.UnknownThemeError

// UnknownArchitectureError is returned for an architecture with no layout.
type UnknownArchitectureError = arch.UnknownArchitectureError

// Themes.
const (
	ThemeProtein = tokenizer.ThemeProtein
	ThemeRNA     = tokenizer.ThemeRNA
)

// FromArchitecture builds the alphabet for an architecture id or name
// ("roberta_large" or "ESM-1b", for example) and theme.
func FromArchitecture(name, theme string) (*Alphabet, error) {
	return tokenizer.FromArchitecture(name, theme)
}

// Themes returns the known themes in sorted order.
func Themes() []string {
	return tokenizer.Themes()
}
