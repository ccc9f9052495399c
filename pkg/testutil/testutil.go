// Package testutil provides testing utilities for spotify-dataset
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SampleCSV is a small track listing with a missing value in every column kind
const SampleCSV = `artist,song,popularity,energy,explicit
Adele,Hello,82,0.43,False
Queen,Bohemian Rhapsody,,0.4,False
Eminem,Lose Yourself,90,,True
Daft Punk,One More Time,77,0.7,
,Untitled,12,0.2,False
Björk,Army of Me,61,0.85,False
`

// WriteFile writes content to dir/name, creating dir, and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ZipArchive builds an in-memory zip from name to content pairs
func ZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TrackRows renders n synthetic track rows under the SampleCSV header
func TrackRows(n int) string {
	var b strings.Builder
	b.WriteString("artist,song,popularity,energy,explicit\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Artist %d,Song %d,%d,%.2f,%t\n", i%17, i, i%100, float64(i%10)/10, i%3 == 0)
	}
	return b.String()
}
