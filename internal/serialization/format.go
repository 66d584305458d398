package serialization

import (
	"time"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersion     = 1    // v1: Basic format without checksum
	FormatVersionV2   = 2    // v2: With SHA-256 checksum
	HeaderAlignment   = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// Flags for the .born format.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: reserved, never set
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// MetadataArgs is the metadata key holding the checkpoint configuration as a
// JSON object.
const MetadataArgs = "args"

// Producer identifies the writer in Header.Producer.
const Producer = "rnafm"

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .born format
	Producer      string            `json:"producer"`       // Program that wrote the file
	ModelType     string            `json:"model_type"`     // Architecture id of the checkpoint
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "layers.0.fc1.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32", "float16")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section (bytes from start of tensor data)
	Size   int64  `json:"size"`   // Size in bytes
}

// dataType resolves the dtype name of a tensor entry.
func (m TensorMeta) dataType() (tensor.DataType, error) {
	dt, ok := tensor.ParseDataType(m.DType)
	if !ok {
		return 0, &ValidationError{
			Type:    "unsupported_dtype",
			Tensor:  m.Name,
			Details: m.DType,
		}
	}
	return dt, nil
}

func alignedDataOffset(headerEnd int64) int64 {
	padding := (HeaderAlignment - (headerEnd % HeaderAlignment)) % HeaderAlignment
	return headerEnd + padding
}
