package storage

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
	}{
		{"data/spotify_dataset.csv", Location{Scheme: SchemeFile, Path: filepath.Clean("data/spotify_dataset.csv")}},
		{"file:///tmp/out.parquet", Location{Scheme: SchemeFile, Path: "/tmp/out.parquet"}},
		{"s3://bucket/exports/spotify.parquet", Location{Scheme: SchemeS3, Bucket: "bucket", Path: "exports/spotify.parquet"}},
		{"gs://bucket/spotify.csv", Location{Scheme: SchemeGCS, Bucket: "bucket", Path: "spotify.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, raw := range []string{"", "s3://bucket", "s3:///key", "ftp://host/file"} {
		_, err := ParseLocation(raw)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), raw)
	}
}

func TestWithExt(t *testing.T) {
	loc, err := ParseLocation("s3://bucket/out/spotify_dataset.parquet")
	require.NoError(t, err)

	csv := loc.WithExt(".csv")
	assert.Equal(t, "s3://bucket/out/spotify_dataset.csv", csv.String())
	assert.Equal(t, ".parquet", loc.Ext())
}

func TestCreateLocalMakesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	loc, err := ParseLocation(p)
	require.NoError(t, err)

	w, err := Create(context.Background(), loc)
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
}

// fakeUploader drains the body like manager.Uploader and keeps what arrived
type fakeUploader struct {
	mu      sync.Mutex
	bucket  string
	key     string
	body    string
	readErr error
	fail    error
}

func (u *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(input.Body)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.bucket, u.key = aws.ToString(input.Bucket), aws.ToString(input.Key)
	if err != nil {
		u.readErr = err
		return nil, err
	}
	if u.fail != nil {
		return nil, u.fail
	}
	u.body = string(data)
	return &manager.UploadOutput{Key: input.Key}, nil
}

func s3Location(t *testing.T) Location {
	t.Helper()
	loc, err := ParseLocation("s3://bucket/exports/tracks.csv")
	require.NoError(t, err)
	return loc
}

func TestS3WriterUploadsOnClose(t *testing.T) {
	up := &fakeUploader{}
	w := newS3Writer(context.Background(), up, s3Location(t))

	_, err := io.WriteString(w, "artist,song\n")
	require.NoError(t, err)
	_, err = io.WriteString(w, "Adele,Hello\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "bucket", up.bucket)
	assert.Equal(t, "exports/tracks.csv", up.key)
	assert.Equal(t, "artist,song\nAdele,Hello\n", up.body)
	assert.NoError(t, up.readErr)
}

func TestS3WriterUploadFailureIsConnectionError(t *testing.T) {
	up := &fakeUploader{fail: stderrors.New("access denied")}
	w := newS3Writer(context.Background(), up, s3Location(t))

	_, err := io.WriteString(w, "a\n1\n")
	require.NoError(t, err)

	err = w.Close()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestS3WriterCloseWithErrorAbortsUpload(t *testing.T) {
	up := &fakeUploader{}
	w := newS3Writer(context.Background(), up, s3Location(t))

	_, err := io.WriteString(w, "partial,row")
	require.NoError(t, err)

	cause := stderrors.New("encode failed")
	require.NoError(t, w.CloseWithError(cause))

	assert.ErrorIs(t, up.readErr, cause, "the uploader sees the cause instead of EOF")
	assert.Empty(t, up.body, "no object is stored")
}

// fakeGCS answers JSON API media uploads and keeps each completed body
type fakeGCS struct {
	mu      sync.Mutex
	uploads []string
}

func newFakeGCS(t *testing.T) *fakeGCS {
	t.Helper()
	f := &fakeGCS{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/bucket/o") {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.uploads = append(f.uploads, string(body))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket":"bucket","name":"tracks.csv"}`)
	}))
	t.Cleanup(server.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", server.URL)
	return f
}

func (f *fakeGCS) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func TestGCSWriterUploadsOnClose(t *testing.T) {
	gcs := newFakeGCS(t)
	loc, err := ParseLocation("gs://bucket/tracks.csv")
	require.NoError(t, err)

	w, err := Create(context.Background(), loc)
	require.NoError(t, err)
	_, err = io.WriteString(w, "artist,song\nAdele,Hello\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	uploads := gcs.Uploads()
	require.Len(t, uploads, 1)
	assert.Contains(t, uploads[0], "artist,song\nAdele,Hello\n")
}

func TestGCSWriterCloseWithErrorAbortsUpload(t *testing.T) {
	gcs := newFakeGCS(t)
	loc, err := ParseLocation("gs://bucket/tracks.csv")
	require.NoError(t, err)

	w, err := Create(context.Background(), loc)
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial,row")
	require.NoError(t, err)

	aborter, ok := w.(interface{ CloseWithError(error) error })
	require.True(t, ok)
	require.NoError(t, aborter.CloseWithError(stderrors.New("encode failed")))

	assert.Empty(t, gcs.Uploads(), "no object is created")
}
