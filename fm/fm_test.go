// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erik-whiting/RNA-FM/fm"
	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/loader"
	"github.com/erik-whiting/RNA-FM/internal/model"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
	"github.com/erik-whiting/RNA-FM/internal/tokenizer"
)

// writeLegacyESM1b writes a small roberta_large checkpoint and its regression
// file into dir and returns the model path.
func writeLegacyESM1b(t *testing.T, dir string, withRegression bool) string {
	t.Helper()

	canonical := fm.Config{
		"arch": "roberta_large", "layers": 2, "embed_dim": 8,
		"ffn_embed_dim": 16, "attention_heads": 2, "max_positions": 10,
	}
	alphabet, err := tokenizer.FromArchitecture(arch.RobertaLarge, tokenizer.ThemeRNA)
	require.NoError(t, err)
	skeleton, err := model.New(arch.StandardTransformer, canonical, alphabet)
	require.NoError(t, err)

	params := fm.StateDict{}
	aux := fm.StateDict{}
	for name, p := range skeleton.NamedParameters() {
		raw, err := tensor.NewRaw(p.Shape(), tensor.Float16)
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(name, "contact_head."):
			aux[name] = raw
		case strings.HasPrefix(name, "lm_head."):
			params["encoder."+name] = raw
		default:
			params["encoder.sentence_encoder."+name] = raw
		}
	}
	cfg := fm.Config{
		"arch": "roberta_large", "encoder_layers": 2, "encoder_embed_dim": 8,
		"encoder_ffn_embed_dim": 16, "encoder_attention_heads": 2, "max_positions": 10,
	}

	path := filepath.Join(dir, "RNA-FM_pretrained.safetensors")
	require.NoError(t, loader.WriteCheckpoint(path, fm.NewRecord(cfg, params)))
	if withRegression {
		require.NoError(t, loader.WriteCheckpoint(loader.RegressionPath(path), fm.NewRecord(nil, aux)))
	}
	return path
}

func TestLoadLocal(t *testing.T) {
	path := writeLegacyESM1b(t, t.TempDir(), true)

	res, err := fm.LoadLocal(path, fm.WithTheme("rna"))
	require.NoError(t, err)

	assert.Equal(t, "ProteinBertModel", res.Model.Name())
	assert.Equal(t, model.VersionESM1b, res.Model.Version())
	assert.Equal(t, arch.RobertaLarge, res.Arch)
	assert.Equal(t, 25, res.Alphabet.Size())
	assert.Empty(t, res.Warnings)
	assert.Contains(t, res.Summary(), "ProteinBertModel (roberta_large")
}

func TestLoadLocalWithoutRegressionWarns(t *testing.T) {
	path := writeLegacyESM1b(t, t.TempDir(), false)
	core, logs := observer.New(zap.WarnLevel)

	res, err := fm.LoadLocal(path, fm.WithLogger(zap.New(core)), fm.WithTheme("rna"))
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], fm.ErrMissingRegression)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Regression weights not found").Len())
}

func TestLoadLocalArchOverride(t *testing.T) {
	path := writeLegacyESM1b(t, t.TempDir(), true)

	_, err := fm.LoadLocal(path, fm.WithArch("esm3"))
	var unknown *arch.UnknownArchitectureError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "esm3", unknown.ID)
}

func TestLoadModelAndAlphabetFromHub(t *testing.T) {
	dir := t.TempDir()
	path := writeLegacyESM1b(t, dir, true)
	modelData, err := os.ReadFile(path)
	require.NoError(t, err)
	regData, err := os.ReadFile(loader.RegressionPath(path))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/" + fm.ESM1bT33650MUR50S + ".safetensors":
			_, _ = w.Write(modelData)
		case "/regression/" + fm.ESM1bT33650MUR50S + "-contact-regression.safetensors":
			_, _ = w.Write(regData)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	hub := &fm.Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client()}
	res, err := fm.ESM1b_t33_650M_UR50S(context.Background(), fm.WithHub(hub), fm.WithTheme("rna"))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	res, err = fm.LoadModelAndAlphabet(context.Background(), path, fm.WithTheme("rna"))
	require.NoError(t, err)
	assert.Equal(t, 25, res.Alphabet.Size())
}

func TestLoadModelAndAlphabetErrors(t *testing.T) {
	_, err := fm.LoadModelAndAlphabet(context.Background(), "")
	require.Error(t, err)

	_, err = fm.LoadModelAndAlphabet(context.Background(), filepath.Join(t.TempDir(), "missing.born"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsLocalPath(t *testing.T) {
	assert.True(t, fm.IsLocalPath("pretrained/RNA-FM_pretrained.safetensors"))
	assert.True(t, fm.IsLocalPath("model.BORN"))
	assert.True(t, fm.IsLocalPath("./checkpoints/esm1b"))
	assert.False(t, fm.IsLocalPath(fm.ESM1bT33650MUR50S))
}

func TestLoadModelAndAlphabetPathWithoutExtension(t *testing.T) {
	// A path is never sent to the hub, even without a checkpoint extension.
	_, err := fm.LoadModelAndAlphabet(context.Background(), filepath.Join(t.TempDir(), "esm1b"))
	require.ErrorIs(t, err, loader.ErrUnsupportedFormat)
}

func TestListings(t *testing.T) {
	assert.Equal(t, []string{"msa_transformer", "protein_bert_base", "roberta_large"}, fm.Architectures())
	assert.ElementsMatch(t, []string{"protein", "rna"}, fm.Themes())
}
