package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/serialization"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

func testRecord(t *testing.T) *checkpoint.Record {
	t.Helper()

	embed, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	bias, err := tensor.FromFloat32(tensor.Shape{2}, []float32{5, 6})
	require.NoError(t, err)

	return checkpoint.NewRecord(
		checkpoint.Config{"arch": "roberta_large", "layers": 12.0, "emb_layer_norm_before": true},
		checkpoint.StateDict{
			"encoder.sentence_encoder.embed_tokens.weight": embed,
			"encoder.lm_head.bias":                         bias,
		},
	)
}

func assertSameRecord(t *testing.T, want, got *checkpoint.Record) {
	t.Helper()

	if diff := cmp.Diff(map[string]any(want.Config), map[string]any(got.Config)); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.Params.Names(), got.Params.Names())
	for name, raw := range want.Params {
		assert.True(t, raw.Equal(got.Params[name]), "tensor %s differs", name)
	}
}

func TestWriteReadCheckpoint(t *testing.T) {
	for _, ext := range []string{".safetensors", ".born"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model"+ext)
			rec := testRecord(t)

			require.NoError(t, WriteCheckpoint(path, rec))

			got, err := ReadCheckpoint(path)
			require.NoError(t, err)
			assertSameRecord(t, rec, got)
		})
	}
}

func TestWriteBornRecordsArch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteCheckpoint(path, testRecord(t)))

	r, err := serialization.NewBornReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, serialization.FormatVersionV2, r.Version())
	assert.Equal(t, "roberta_large", r.Header().ModelType)
}

func TestReadCheckpointRequiresArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noargs.safetensors")
	require.NoError(t, serialization.WriteSafeTensors(path, testRecord(t).Params, nil))

	_, err := ReadCheckpoint(path)
	require.ErrorIs(t, err, ErrMissingArgs)

	rec, err := ReadRegression(path)
	require.NoError(t, err)
	assert.Empty(t, rec.Config)
	assert.Len(t, rec.Params, 2)
}

func TestReadCheckpointBadArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badargs.safetensors")
	require.NoError(t, serialization.WriteSafeTensors(path, testRecord(t).Params,
		map[string]string{serialization.MetadataArgs: "not json"}))

	_, err := ReadCheckpoint(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse args metadata")
}

func TestWriteCheckpointUnsupportedFormat(t *testing.T) {
	err := WriteCheckpoint(filepath.Join(t.TempDir(), "model.pt"), testRecord(t))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegressionPath(t *testing.T) {
	assert.Equal(t, "pretrained/RNA-FM_pretrained-contact-regression.safetensors",
		RegressionPath("pretrained/RNA-FM_pretrained.safetensors"))
	assert.Equal(t, "/tmp/esm1b.v1-contact-regression.born", RegressionPath("/tmp/esm1b.v1.born"))
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RNA-FM_pretrained.safetensors")
	rec := testRecord(t)
	require.NoError(t, WriteCheckpoint(path, rec))

	model, regression, err := LoadLocal(path)
	require.NoError(t, err)
	assertSameRecord(t, rec, model)
	assert.Nil(t, regression)

	weight, err := tensor.FromFloat32(tensor.Shape{1, 24}, make([]float32, 24))
	require.NoError(t, err)
	require.NoError(t, serialization.WriteSafeTensors(RegressionPath(path),
		map[string]*tensor.RawTensor{"contact_head.regression.weight": weight}, nil))

	_, regression, err = LoadLocal(path)
	require.NoError(t, err)
	require.NotNil(t, regression)
	assert.Equal(t, []string{"contact_head.regression.weight"}, regression.Params.Names())
}

func TestLoadLocalMissingModel(t *testing.T) {
	_, _, err := LoadLocal(filepath.Join(t.TempDir(), "missing.safetensors"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
