package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// hubServer serves checkpoint files from an in-memory path table and counts
// requests per path.
type hubServer struct {
	*httptest.Server
	files map[string][]byte
	hits  map[string]*atomic.Int32
}

func newHubServer(t *testing.T, files map[string][]byte) *hubServer {
	t.Helper()

	hs := &hubServer{files: files, hits: make(map[string]*atomic.Int32)}
	for path := range files {
		hs.hits[path] = &atomic.Int32{}
	}
	hs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := hs.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hs.hits[r.URL.Path].Add(1)
		_, _ = w.Write(data)
	}))
	t.Cleanup(hs.Close)
	return hs
}

func encodeRecord(t *testing.T, rec *checkpoint.Record) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encode.safetensors")
	require.NoError(t, WriteCheckpoint(path, rec))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func regressionRecord(t *testing.T) *checkpoint.Record {
	t.Helper()
	weight, err := tensor.FromFloat32(tensor.Shape{1, 4}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	return checkpoint.NewRecord(checkpoint.Config{"arch": "roberta_large"},
		checkpoint.StateDict{"contact_head.regression.weight": weight})
}

func TestHubFetch(t *testing.T) {
	rec := testRecord(t)
	srv := newHubServer(t, map[string][]byte{
		"/models/esm1b.safetensors":                        encodeRecord(t, rec),
		"/regression/esm1b-contact-regression.safetensors": encodeRecord(t, regressionRecord(t)),
	})
	hub := &Hub{BaseURL: srv.URL + "/", CacheDir: t.TempDir(), Client: srv.Client()}

	model, regression, err := hub.Fetch(context.Background(), "esm1b")
	require.NoError(t, err)
	assertSameRecord(t, rec, model)
	require.NotNil(t, regression)
	assert.Equal(t, []string{"contact_head.regression.weight"}, regression.Params.Names())

	assert.FileExists(t, filepath.Join(hub.CacheDir, "checkpoints", "esm1b.safetensors"))
	assert.FileExists(t, filepath.Join(hub.CacheDir, "checkpoints", "esm1b-contact-regression.safetensors"))
	partials, err := filepath.Glob(filepath.Join(hub.CacheDir, "checkpoints", "*.partial"))
	require.NoError(t, err)
	assert.Empty(t, partials)
}

func TestHubFetchUsesCache(t *testing.T) {
	srv := newHubServer(t, map[string][]byte{
		"/models/esm1b.safetensors":                        encodeRecord(t, testRecord(t)),
		"/regression/esm1b-contact-regression.safetensors": encodeRecord(t, regressionRecord(t)),
	})
	hub := &Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client()}

	for i := 0; i < 2; i++ {
		_, _, err := hub.Fetch(context.Background(), "esm1b")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), srv.hits["/models/esm1b.safetensors"].Load())
	assert.Equal(t, int32(1), srv.hits["/regression/esm1b-contact-regression.safetensors"].Load())
}

func TestHubFetchWithoutRegression(t *testing.T) {
	srv := newHubServer(t, map[string][]byte{
		"/models/esm1_t6.safetensors": encodeRecord(t, testRecord(t)),
	})
	hub := &Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client()}

	model, regression, err := hub.Fetch(context.Background(), "esm1_t6")
	require.NoError(t, err)
	assert.NotNil(t, model)
	assert.Nil(t, regression)
}

func TestHubFetchUnknownModel(t *testing.T) {
	srv := newHubServer(t, map[string][]byte{})
	hub := &Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client()}

	_, _, err := hub.Fetch(context.Background(), "nope")
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestHubFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	core, logs := observer.New(zap.WarnLevel)
	hub := &Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client(), Logger: zap.New(core)}

	_, _, err := hub.Fetch(context.Background(), "esm1b")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Zero(t, logs.Len())

	// A cached copy is used without contacting the server.
	rec := testRecord(t)
	require.NoError(t, os.MkdirAll(filepath.Join(hub.CacheDir, "checkpoints"), 0o750))
	require.NoError(t, WriteCheckpoint(filepath.Join(hub.CacheDir, "checkpoints", "esm1b.safetensors"), rec))
	require.NoError(t, os.WriteFile(filepath.Join(hub.CacheDir, "checkpoints", "esm1b-contact-regression.safetensors"),
		encodeRecord(t, regressionRecord(t)), 0o600))

	model, regression, err := hub.Fetch(context.Background(), "esm1b")
	require.NoError(t, err)
	assertSameRecord(t, rec, model)
	assert.NotNil(t, regression)
}

func TestHubFetchCanceled(t *testing.T) {
	srv := newHubServer(t, map[string][]byte{
		"/models/esm1b.safetensors": encodeRecord(t, testRecord(t)),
	})
	hub := &Hub{BaseURL: srv.URL, CacheDir: t.TempDir(), Client: srv.Client()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := hub.Fetch(ctx, "esm1b")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHubURLs(t *testing.T) {
	hub := &Hub{}
	assert.Equal(t, DefaultHubURL+"/models/esm_msa1b_t12_100M_UR50S.safetensors", hub.ModelURL("esm_msa1b_t12_100M_UR50S"))
	assert.Equal(t, DefaultHubURL+"/regression/esm_msa1b_t12_100M_UR50S-contact-regression.safetensors",
		hub.RegressionURL("esm_msa1b_t12_100M_UR50S"))
}
