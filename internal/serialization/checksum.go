package serialization

import (
	"crypto/sha256"
	"io"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// ComputeChecksum computes the SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader computes the SHA-256 checksum of everything read from r.
func ComputeChecksumReader(r io.Reader) ([32]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// checksumTensors hashes the data of the named tensors in order, which is the
// byte sequence of a .born data section without padding.
func checksumTensors(names []string, stateDict map[string]*tensor.RawTensor) [32]byte {
	h := sha256.New()
	for _, name := range names {
		h.Write(stateDict[name].Data())
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
