package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/serialization"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// ModelFormat represents the checkpoint file format.
type ModelFormat int

// Supported model formats.
const (
	FormatUnknown ModelFormat = iota
	FormatSafeTensors
	FormatBorn
)

// String returns the format name.
func (f ModelFormat) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatBorn:
		return "Born"
	default:
		return "Unknown"
	}
}

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) ModelFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".safetensors":
		return FormatSafeTensors
	case ".born":
		return FormatBorn
	default:
		return FormatUnknown
	}
}

// ModelReader provides a unified interface over checkpoint files.
type ModelReader interface {
	// Close closes the underlying file.
	Close() error

	// Format returns the model format.
	Format() ModelFormat

	// Metadata returns the string metadata stored with the tensors.
	Metadata() map[string]string

	// TensorNames returns all tensor names in the file.
	TensorNames() []string

	// LoadTensor loads a tensor by name.
	LoadTensor(name string) (*tensor.RawTensor, error)

	// ReadTensorData reads raw tensor bytes.
	ReadTensorData(name string) ([]byte, error)

	// ReadStateDict loads every tensor.
	ReadStateDict() (checkpoint.StateDict, error)
}

// safeTensorsModel wraps SafeTensorsReader to implement ModelReader.
type safeTensorsModel struct {
	*SafeTensorsReader
}

// Format returns FormatSafeTensors.
func (m safeTensorsModel) Format() ModelFormat {
	return FormatSafeTensors
}

// bornModel wraps serialization.BornReader to implement ModelReader.
type bornModel struct {
	reader *serialization.BornReader
}

// Format returns FormatBorn.
func (m bornModel) Format() ModelFormat {
	return FormatBorn
}

// Metadata returns the header metadata.
func (m bornModel) Metadata() map[string]string {
	return m.reader.Metadata()
}

// TensorNames returns all tensor names.
func (m bornModel) TensorNames() []string {
	return m.reader.TensorNames()
}

// LoadTensor loads a tensor by name.
func (m bornModel) LoadTensor(name string) (*tensor.RawTensor, error) {
	return m.reader.LoadTensor(name)
}

// ReadTensorData reads raw tensor bytes.
func (m bornModel) ReadTensorData(name string) ([]byte, error) {
	return m.reader.ReadTensorData(name)
}

// ReadStateDict loads every tensor.
func (m bornModel) ReadStateDict() (checkpoint.StateDict, error) {
	sd, err := m.reader.ReadStateDict()
	if err != nil {
		return nil, err
	}
	return checkpoint.StateDict(sd), nil
}

// Close closes the reader.
func (m bornModel) Close() error {
	return m.reader.Close()
}

// OpenModel opens a checkpoint file and detects the format from its extension.
// Supports .safetensors and .born files.
//
// Example:
//
//	model, err := loader.OpenModel("pretrained/RNA-FM_pretrained.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	fmt.Printf("Format: %s\n", model.Format())
func OpenModel(path string) (ModelReader, error) {
	switch DetectFormat(path) {
	case FormatSafeTensors:
		reader, err := NewSafeTensorsReader(path)
		if err != nil {
			return nil, err
		}
		return safeTensorsModel{reader}, nil
	case FormatBorn:
		reader, err := serialization.NewBornReader(path)
		if err != nil {
			return nil, err
		}
		return bornModel{reader}, nil
	default:
		return nil, fmt.Errorf("%w: %s (expected .safetensors or .born)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
