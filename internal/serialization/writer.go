package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// BornWriter writes checkpoints in the .born format.
type BornWriter struct {
	file   *os.File
	closed bool
	now    func() time.Time
}

// NewBornWriter creates a new .born file writer.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: checkpoint paths come from the caller
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &BornWriter{file: file, now: time.Now}, nil
}

// buildHeader lays out tensors in name order and fills in the header.
func (w *BornWriter) buildHeader(stateDict map[string]*tensor.RawTensor, version int, modelType string, metadata map[string]string) (Header, []string) {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: version,
		Producer:      Producer,
		ModelType:     modelType,
		CreatedAt:     w.now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(names)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	return header, names
}

// WriteStateDict writes a state dictionary using format v1.
//
// The state dictionary is a map from parameter names to tensors. Tensors are
// stored in name order.
func (w *BornWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	if w.closed {
		return ErrClosed
	}

	header, names := w.buildHeader(stateDict, FormatVersion, modelType, metadata)
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}

	// magic, version, flags, header size
	prefix := make([]byte, 4+4+4+8)
	copy(prefix[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(prefix[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(prefix[8:12], flags)
	binary.LittleEndian.PutUint64(prefix[12:20], uint64(len(headerJSON)))

	headerEnd := int64(len(prefix) + len(headerJSON))
	return w.writeSections(prefix, headerJSON, headerEnd, names, stateDict)
}

// WriteStateDictV2 writes a state dictionary using format v2, which adds a
// SHA-256 checksum of the tensor data to a 64-byte fixed header.
func (w *BornWriter) WriteStateDictV2(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	if w.closed {
		return ErrClosed
	}

	header, names := w.buildHeader(stateDict, FormatVersionV2, modelType, metadata)
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var dataSize uint64
	for _, meta := range header.Tensors {
		dataSize += uint64(meta.Size) //nolint:gosec // sizes are non-negative
	}
	checksum := checksumTensors(names, stateDict)

	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}

	// 0x00 magic, 0x04 version, 0x08 flags, 0x0C reserved,
	// 0x10 header size, 0x18 data size, 0x20 checksum
	fixedHeader := make([]byte, FixedHeaderSizeV2)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersionV2))
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], dataSize)
	copy(fixedHeader[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	headerEnd := int64(FixedHeaderSizeV2 + len(headerJSON))
	return w.writeSections(fixedHeader, headerJSON, headerEnd, names, stateDict)
}

func (w *BornWriter) writeSections(prefix, headerJSON []byte, headerEnd int64, names []string, stateDict map[string]*tensor.RawTensor) error {
	if _, err := w.file.Write(prefix); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if padding := alignedDataOffset(headerEnd) - headerEnd; padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	return writeTensorData(w.file, names, stateDict)
}

func writeTensorData(out io.Writer, names []string, stateDict map[string]*tensor.RawTensor) error {
	for _, name := range names {
		if _, err := out.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
