package loader

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erik-whiting/RNA-FM/internal/serialization"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// createTestSafeTensorsFile writes a SafeTensors file by hand, so the reader is
// exercised independently of the writer.
func createTestSafeTensorsFile(t *testing.T, path string, tensors map[string]SafeTensorInfo, data []byte) {
	t.Helper()

	headerMap := make(map[string]any)
	headerMap["__metadata__"] = map[string]string{"format": "pt"}
	for name, info := range tensors {
		headerMap[name] = info
	}

	headerJSON, err := json.Marshal(headerMap)
	require.NoError(t, err)

	buf := binary.LittleEndian.AppendUint64(nil, uint64(len(headerJSON)))
	buf = append(buf, headerJSON...)
	buf = append(buf, data...)
	require.NoError(t, os.WriteFile(path, buf, 0o600))
}

func float32Bytes(t *testing.T, values ...float32) []byte {
	t.Helper()
	raw, err := tensor.FromFloat32(tensor.Shape{len(values)}, values)
	require.NoError(t, err)
	return raw.Data()
}

func TestSafeTensorsReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.safetensors")
	data := float32Bytes(t, 1, 2, 3, 4, 5, 6, 0.1, 0.2, 0.3)
	data = append(data, 0x00, 0x3c, 0x00, 0x40) // float16 1.0, 2.0
	createTestSafeTensorsFile(t, path, map[string]SafeTensorInfo{
		"weight": {DType: "F32", Shape: []int{2, 3}, DataOffsets: [2]int64{0, 24}},
		"bias":   {DType: "F32", Shape: []int{3}, DataOffsets: [2]int64{24, 36}},
		"half":   {DType: "F16", Shape: []int{2}, DataOffsets: [2]int64{36, 40}},
	}, data)

	r, err := NewSafeTensorsReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "pt", r.Metadata()["format"])
	assert.Equal(t, []string{"bias", "half", "weight"}, r.TensorNames())

	weight, err := r.LoadTensor("weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, weight.Shape())
	assert.Equal(t, data[:24], weight.Data())

	half, err := r.LoadTensor("half")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float16, half.DType())
	assert.Equal(t, []byte{0x00, 0x3c, 0x00, 0x40}, half.Data())

	sd, err := r.ReadStateDict()
	require.NoError(t, err)
	assert.Len(t, sd, 3)

	_, err = r.LoadTensor("missing")
	require.ErrorIs(t, err, serialization.ErrTensorNotFound)
}

func TestSafeTensorsReaderRejectsBadTables(t *testing.T) {
	tests := []struct {
		name    string
		tensors map[string]SafeTensorInfo
		dataLen int
		errType string
	}{
		{
			name: "out of bounds",
			tensors: map[string]SafeTensorInfo{
				"w": {DType: "F32", Shape: []int{4}, DataOffsets: [2]int64{0, 16}},
			},
			dataLen: 8,
			errType: "out_of_bounds",
		},
		{
			name: "size mismatch",
			tensors: map[string]SafeTensorInfo{
				"w": {DType: "F32", Shape: []int{3}, DataOffsets: [2]int64{0, 8}},
			},
			dataLen: 8,
			errType: "size_mismatch",
		},
		{
			name: "overlap",
			tensors: map[string]SafeTensorInfo{
				"a": {DType: "F32", Shape: []int{2}, DataOffsets: [2]int64{0, 8}},
				"b": {DType: "F32", Shape: []int{2}, DataOffsets: [2]int64{4, 12}},
			},
			dataLen: 12,
			errType: "offset_overlap",
		},
		{
			name: "unsupported dtype",
			tensors: map[string]SafeTensorInfo{
				"w": {DType: "F8_E4M3", Shape: []int{2}, DataOffsets: [2]int64{0, 2}},
			},
			dataLen: 2,
			errType: "unsupported_dtype",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.safetensors")
			createTestSafeTensorsFile(t, path, tt.tensors, make([]byte, tt.dataLen))

			_, err := NewSafeTensorsReader(path)
			var verr *serialization.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.errType, verr.Type)
		})
	}
}

func TestSafeTensorsReaderTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.safetensors")
	buf := binary.LittleEndian.AppendUint64(nil, 100)
	buf = append(buf, []byte(`{"a":`)...)
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	_, err := NewSafeTensorsReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read header")
}

func TestSafeTensorsWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.safetensors")
	weight, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	bf16, err := tensor.FromBytes(tensor.Shape{1}, tensor.BFloat16, []byte{0x80, 0x3f})
	require.NoError(t, err)

	require.NoError(t, serialization.WriteSafeTensors(path, map[string]*tensor.RawTensor{
		"weight": weight,
		"scale":  bf16,
	}, map[string]string{"framework": "rnafm"}))

	r, err := NewSafeTensorsReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "rnafm", r.Metadata()["framework"])
	sd, err := r.ReadStateDict()
	require.NoError(t, err)
	assert.True(t, weight.Equal(sd["weight"]))
	assert.True(t, bf16.Equal(sd["scale"]))
}

func TestOpenModel(t *testing.T) {
	dir := t.TempDir()
	weight, err := tensor.FromFloat32(tensor.Shape{2}, []float32{1, 2})
	require.NoError(t, err)
	sd := map[string]*tensor.RawTensor{"w": weight}

	stPath := filepath.Join(dir, "m.safetensors")
	require.NoError(t, serialization.WriteSafeTensors(stPath, sd, nil))

	bornPath := filepath.Join(dir, "m.born")
	w, err := serialization.NewBornWriter(bornPath)
	require.NoError(t, err)
	require.NoError(t, w.WriteStateDict(sd, "", nil))
	require.NoError(t, w.Close())

	for path, format := range map[string]ModelFormat{stPath: FormatSafeTensors, bornPath: FormatBorn} {
		m, err := OpenModel(path)
		require.NoError(t, err)
		assert.Equal(t, format, m.Format())
		assert.Equal(t, []string{"w"}, m.TensorNames())

		data, err := m.ReadTensorData("w")
		require.NoError(t, err)
		assert.Equal(t, weight.Data(), data)
		require.NoError(t, m.Close())
	}

	_, err = OpenModel(filepath.Join(dir, "m.pt"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "Unknown", DetectFormat("x.gguf").String())
}
