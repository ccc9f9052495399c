package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for integration tests
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupTest runs before every test in the suite
func (s *IntegrationTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	s.startTime = time.Now()
	s.tempDir = s.T().TempDir()
}

// TearDownTest runs after every test in the suite
func (s *IntegrationTestSuite) TearDownTest() {
	s.cancel()
	s.T().Logf("test completed in %v", time.Since(s.startTime))
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile creates a file with content under the temp directory
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(s.T(), os.WriteFile(path, content, 0o600))
	return path
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// FakeRegistry serves the two dataset registry endpoints from memory
type FakeRegistry struct {
	Server    *httptest.Server
	Version   int
	Archive   []byte
	Username  string
	Key       string
	downloads atomic.Int32
}

// NewFakeRegistry starts a registry serving archive as version 1 of owner/slug.
// When username is set, requests without matching basic auth get 401.
func NewFakeRegistry(t *testing.T, owner, slug string, archive []byte, username, key string) *FakeRegistry {
	t.Helper()

	r := &FakeRegistry{Version: 1, Archive: archive, Username: username, Key: key}
	mux := http.NewServeMux()

	mux.HandleFunc("/datasets/view/"+owner+"/"+slug, func(w http.ResponseWriter, req *http.Request) {
		if !r.authorized(req) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ref":"` + owner + "/" + slug + `","currentVersionNumber":` + strconv.Itoa(r.Version) + `}`))
	})

	mux.HandleFunc("/datasets/download/"+owner+"/"+slug, func(w http.ResponseWriter, req *http.Request) {
		if !r.authorized(req) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if req.URL.Query().Get("datasetVersionNumber") != strconv.Itoa(r.Version) {
			http.NotFound(w, req)
			return
		}
		r.downloads.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(r.Archive)
	})

	r.Server = httptest.NewServer(mux)
	t.Cleanup(r.Server.Close)
	return r
}

// URL is the registry base URL
func (r *FakeRegistry) URL() string {
	return r.Server.URL
}

// Downloads counts archive downloads served
func (r *FakeRegistry) Downloads() int {
	return int(r.downloads.Load())
}

func (r *FakeRegistry) authorized(req *http.Request) bool {
	if r.Username == "" {
		return true
	}
	user, key, ok := req.BasicAuth()
	return ok && user == r.Username && key == r.Key
}
