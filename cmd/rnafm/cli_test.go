package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erik-whiting/RNA-FM/fm"
	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/loader"
	"github.com/erik-whiting/RNA-FM/internal/model"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
	"github.com/erik-whiting/RNA-FM/internal/tokenizer"
)

// writeLegacyESM1 writes a small protein_bert_base checkpoint without
// regression weights and returns its path.
func writeLegacyESM1(t *testing.T) string {
	t.Helper()

	canonical := checkpoint.Config{
		"arch": "protein_bert_base", "layers": 1, "embed_dim": 4,
		"ffn_embed_dim": 8, "attention_heads": 2, "max_positions": 6,
	}
	alphabet, err := tokenizer.FromArchitecture(arch.ProteinBertBase, tokenizer.ThemeProtein)
	require.NoError(t, err)
	skeleton, err := model.New(arch.StandardTransformer, canonical, alphabet)
	require.NoError(t, err)

	params := checkpoint.StateDict{}
	for name, p := range skeleton.NamedParameters() {
		if strings.HasPrefix(name, "contact_head.") {
			continue
		}
		raw, err := tensor.NewRaw(p.Shape(), tensor.Float32)
		require.NoError(t, err)
		params["decoder."+name] = raw
	}
	cfg := checkpoint.Config{
		"arch": "protein_bert_base", "decoder_layers": 1, "decoder_embed_dim": 4,
		"decoder_ffn_embed_dim": 8, "decoder_attention_heads": 2, "max_positions": 6,
	}

	path := filepath.Join(t.TempDir(), "esm1.safetensors")
	require.NoError(t, loader.WriteCheckpoint(path, checkpoint.NewRecord(cfg, params)))
	return path
}

// run executes the root command with an isolated config file.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RNAFM_CACHE_DIR", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rnafm "+version+"\n", out)
}

func TestArchs(t *testing.T) {
	out, err := run(t, "archs")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "msa_transformer")
	assert.Contains(t, lines[1], "MSATransformer")
	assert.Contains(t, lines[3], "roberta_large")
	assert.Contains(t, lines[3], "true")
}

func TestLoad(t *testing.T) {
	path := writeLegacyESM1(t)

	out, err := run(t, "load", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ProteinBertModel (protein_bert_base, ESM-1)")
	assert.Contains(t, out, "warning: regression weights not found")
}

func TestLoadJSON(t *testing.T) {
	path := writeLegacyESM1(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  format: json\n"), 0o600))

	t.Setenv("RNAFM_CACHE_DIR", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "load", path})
	require.NoError(t, cmd.Execute())

	var report loadReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "ProteinBertModel", report.Model)
	assert.Equal(t, model.VersionESM1, report.Version)
	assert.Equal(t, 35, report.Alphabet)
	assert.Equal(t, 33, report.MaskIndex)
	assert.Len(t, report.Warnings, 1)
}

func TestLoadUnknownArch(t *testing.T) {
	_, err := run(t, "--arch", "esm2", "load", writeLegacyESM1(t))
	var unknown *arch.UnknownArchitectureError
	require.ErrorAs(t, err, &unknown)
}

func TestLoadInvalidTheme(t *testing.T) {
	_, err := run(t, "--theme", "dna", "load", writeLegacyESM1(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid theme")
}

func TestConvert(t *testing.T) {
	path := writeLegacyESM1(t)
	out := filepath.Join(t.TempDir(), "esm1-canonical.born")

	stdout, err := run(t, "convert", path, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote")

	rec, err := loader.ReadCheckpoint(out)
	require.NoError(t, err)
	assert.Equal(t, "protein_bert_base", rec.Config["arch"])
	assert.Contains(t, rec.Config, "layers", "configuration keys are canonical")
	assert.Contains(t, rec.Params, "embed_tokens.weight")
	for name := range rec.Params {
		assert.False(t, strings.HasPrefix(name, "decoder."), name)
		assert.False(t, strings.HasPrefix(name, "contact_head."), name)
	}

	assert.True(t, rec.Canonical())

	// The canonical file loads again under the same architecture.
	_, err = run(t, "load", out)
	require.NoError(t, err)
}

// writeLegacy writes a small checkpoint of archID in its legacy naming,
// with every tensor holding a distinct value, and its regression file. It
// returns the model path and the legacy parameters.
func writeLegacy(t *testing.T, archID string) (string, checkpoint.StateDict) {
	t.Helper()

	family := arch.StandardTransformer
	if archID == arch.MSATransformer {
		family = arch.MSATransformerFamily
	}
	canonical := checkpoint.Config{
		"arch": archID, "layers": 1, "embed_dim": 4,
		"ffn_embed_dim": 8, "attention_heads": 2, "max_positions": 6,
	}
	alphabet, err := tokenizer.FromArchitecture(archID, tokenizer.ThemeProtein)
	require.NoError(t, err)
	skeleton, err := model.New(family, canonical, alphabet)
	require.NoError(t, err)

	params := checkpoint.StateDict{}
	aux := checkpoint.StateDict{}
	slots := skeleton.NamedParameters()
	for i, name := range skeleton.ExpectedParameterNames() {
		shape := slots[name].Shape()
		values := make([]float32, shape.NumElements())
		for j := range values {
			values[j] = float32(i + 1)
		}
		raw, err := tensor.FromFloat32(shape, values)
		require.NoError(t, err)

		switch {
		case strings.HasPrefix(name, "contact_head."):
			aux[name] = raw
		case archID == arch.MSATransformer:
			params["encoder.sentence_encoder."+arch.SwapRowColumn(name)] = raw
		default:
			params["encoder.sentence_encoder."+name] = raw
		}
	}
	cfg := checkpoint.Config{
		"arch": archID, "encoder_layers": 1, "encoder_embed_dim": 4,
		"encoder_ffn_embed_dim": 8, "encoder_attention_heads": 2, "max_positions": 6,
	}

	path := filepath.Join(t.TempDir(), archID+".safetensors")
	require.NoError(t, loader.WriteCheckpoint(path, checkpoint.NewRecord(cfg, params)))
	require.NoError(t, loader.WriteCheckpoint(loader.RegressionPath(path), checkpoint.NewRecord(nil, aux)))
	return path, params
}

func TestConvertRoundTrip(t *testing.T) {
	for _, archID := range []string{arch.RobertaLarge, arch.MSATransformer} {
		t.Run(archID, func(t *testing.T) {
			path, _ := writeLegacy(t, archID)
			out := filepath.Join(t.TempDir(), "canonical.born")

			_, err := run(t, "convert", path, out)
			require.NoError(t, err)

			rec, err := loader.ReadCheckpoint(out)
			require.NoError(t, err)
			assert.Equal(t, archID, rec.Config["arch"])
			assert.True(t, rec.Canonical())

			before, err := fm.LoadLocal(path)
			require.NoError(t, err)
			after, err := fm.LoadLocal(out)
			require.NoError(t, err)
			assert.Empty(t, after.Warnings)

			want, err := before.Model.StateDict()
			require.NoError(t, err)
			got, err := after.Model.StateDict()
			require.NoError(t, err)
			require.Equal(t, want.Names(), got.Names())
			for name, raw := range want {
				assert.True(t, raw.Equal(got[name]), name)
			}
		})
	}
}

func TestConvertKeepsMSAAttentionAxes(t *testing.T) {
	path, legacy := writeLegacy(t, arch.MSATransformer)
	out := filepath.Join(t.TempDir(), "msa.safetensors")

	_, err := run(t, "convert", path, out)
	require.NoError(t, err)

	res, err := fm.LoadLocal(out)
	require.NoError(t, err)
	sd, err := res.Model.StateDict()
	require.NoError(t, err)

	// Legacy MSA checkpoints store row attention under the column name.
	row := "layers.0.row_self_attention.layer.k_proj.weight"
	column := "layers.0.column_self_attention.layer.k_proj.weight"
	assert.True(t, sd[row].Equal(legacy["encoder.sentence_encoder."+column]))
	assert.True(t, sd[column].Equal(legacy["encoder.sentence_encoder."+row]))
	assert.False(t, sd[row].Equal(sd[column]))
}
