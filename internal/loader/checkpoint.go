package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/serialization"
)

// Errors returned by the file layer.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingArgs       = errors.New("checkpoint has no args metadata")
)

// RegressionSuffix is appended to a model file stem to name its contact
// regression weights.
const RegressionSuffix = "-contact-regression"

// ReadCheckpoint reads a checkpoint file into a record. The configuration is
// decoded from the JSON object stored under the "args" metadata key.
func ReadCheckpoint(path string) (rec *checkpoint.Record, err error) {
	model, err := OpenModel(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := model.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	cfg, err := decodeArgs(model.Metadata())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	params, err := model.ReadStateDict()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return checkpoint.NewRecord(cfg, params), nil
}

// ReadRegression reads a contact regression file. Regression files may carry
// no configuration.
func ReadRegression(path string) (rec *checkpoint.Record, err error) {
	model, err := OpenModel(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := model.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	cfg, err := decodeArgs(model.Metadata())
	if err != nil && !errors.Is(err, ErrMissingArgs) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	params, err := model.ReadStateDict()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return checkpoint.NewRecord(cfg, params), nil
}

func decodeArgs(metadata map[string]string) (checkpoint.Config, error) {
	args, ok := metadata[serialization.MetadataArgs]
	if !ok {
		return nil, ErrMissingArgs
	}
	var cfg checkpoint.Config
	if err := json.Unmarshal([]byte(args), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse args metadata: %w", err)
	}
	return cfg, nil
}

// WriteCheckpoint writes a record to path, choosing the format from the
// extension. The configuration is stored as JSON under the "args" metadata key.
func WriteCheckpoint(path string, rec *checkpoint.Record) (err error) {
	args, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}
	metadata := map[string]string{serialization.MetadataArgs: string(args)}

	switch DetectFormat(path) {
	case FormatSafeTensors:
		return serialization.WriteSafeTensors(path, rec.Params, metadata)
	case FormatBorn:
		modelType, _ := rec.Arch()
		w, err := serialization.NewBornWriter(path)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := w.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return w.WriteStateDictV2(rec.Params, modelType, metadata)
	default:
		return fmt.Errorf("%w: %s (expected .safetensors or .born)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// RegressionPath returns the path of the regression file that accompanies a
// model file: "<stem>-contact-regression<ext>".
func RegressionPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + RegressionSuffix + ext
}

// LoadLocal reads a model file and, when present, its regression file.
// A missing regression file yields a nil regression record.
func LoadLocal(path string) (model, regression *checkpoint.Record, err error) {
	model, err = ReadCheckpoint(path)
	if err != nil {
		return nil, nil, err
	}

	regPath := RegressionPath(path)
	if _, statErr := os.Stat(regPath); errors.Is(statErr, fs.ErrNotExist) {
		return model, nil, nil
	}

	regression, err = ReadRegression(regPath)
	if err != nil {
		return nil, nil, err
	}
	return model, regression, nil
}
