package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
)

// DefaultHubURL is the default base URL for pretrained checkpoints.
const DefaultHubURL = "https://dl.fbaipublicfiles.com/fair-esm"

// ErrModelNotFound is returned when the hub has no checkpoint of the requested name.
var ErrModelNotFound = errors.New("model not found on hub")

// StatusError is an unexpected HTTP response from the hub.
type StatusError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Hub downloads pretrained checkpoints and keeps them in a local cache.
type Hub struct {
	BaseURL  string
	CacheDir string
	Client   *http.Client
	Logger   *zap.Logger
}

// ModelURL returns the download URL of a model checkpoint.
func (h *Hub) ModelURL(name string) string {
	return h.baseURL() + "/models/" + name + ".safetensors"
}

// RegressionURL returns the download URL of a model's contact regression weights.
func (h *Hub) RegressionURL(name string) string {
	return h.baseURL() + "/regression/" + name + RegressionSuffix + ".safetensors"
}

func (h *Hub) baseURL() string {
	if h.BaseURL == "" {
		return DefaultHubURL
	}
	return strings.TrimRight(h.BaseURL, "/")
}

func (h *Hub) client() *http.Client {
	if h.Client == nil {
		return http.DefaultClient
	}
	return h.Client
}

func (h *Hub) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// cachePath maps a URL to its file in the cache directory.
func (h *Hub) cachePath(url string) string {
	return filepath.Join(h.CacheDir, "checkpoints", url[strings.LastIndex(url, "/")+1:])
}

// Fetch returns the model checkpoint and contact regression weights for name.
// Both files are downloaded concurrently unless already cached. A regression
// file the hub does not have yields a nil regression record.
func (h *Hub) Fetch(ctx context.Context, name string) (model, regression *checkpoint.Record, err error) {
	modelURL, regURL := h.ModelURL(name), h.RegressionURL(name)
	modelPath, regPath := h.cachePath(modelURL), h.cachePath(regURL)

	var hasModel, hasRegression bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hasModel, err = h.fetchFile(gctx, modelURL, modelPath)
		return err
	})
	g.Go(func() error {
		var err error
		hasRegression, err = h.fetchFile(gctx, regURL, regPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if !hasModel {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	model, err = ReadCheckpoint(modelPath)
	if err != nil {
		return nil, nil, err
	}

	if !hasRegression {
		return model, nil, nil
	}
	regression, err = ReadRegression(regPath)
	if err != nil {
		return nil, nil, err
	}
	return model, regression, nil
}

// fetchFile makes url available at dest. It reports false when the hub
// answers 404 and nothing is cached.
func (h *Hub) fetchFile(ctx context.Context, url, dest string) (bool, error) {
	log := h.logger().With(zap.String("url", url), zap.String("path", dest))

	if fileExists(dest) {
		log.Debug("using cached checkpoint")
		return true, nil
	}

	found, err := h.download(ctx, url, dest)
	if err == nil {
		if found {
			log.Debug("downloaded checkpoint")
		}
		return found, nil
	}

	// Another process may have completed the same download.
	if fileExists(dest) {
		log.Warn("download failed, using cached checkpoint", zap.Error(err))
		return true, nil
	}
	return false, err
}

func (h *Hub) download(ctx context.Context, url, dest string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, &StatusError{URL: url, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return false, fmt.Errorf("failed to create cache directory: %w", err)
	}

	partial := dest + "." + uuid.NewString() + ".partial"
	//nolint:gosec // G304: cache paths are derived from the configured cache directory
	f, err := os.Create(partial)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", partial, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(partial)
		return false, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(partial)
		return false, fmt.Errorf("failed to write %s: %w", partial, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return false, fmt.Errorf("failed to move download into cache: %w", err)
	}
	return true, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
