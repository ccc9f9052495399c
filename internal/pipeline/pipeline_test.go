package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/fetcher"
	"github.com/ajitpratap0/spotify-dataset/pkg/formats/columnar"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
	"github.com/ajitpratap0/spotify-dataset/pkg/kaggle"
	"github.com/ajitpratap0/spotify-dataset/pkg/logger"
	"github.com/ajitpratap0/spotify-dataset/pkg/persister"
	"github.com/ajitpratap0/spotify-dataset/pkg/testutil"
)

type stubFetcher struct {
	result *fetcher.Result
	err    error
}

func (s *stubFetcher) Fetch(context.Context, string) (*fetcher.Result, error) {
	return s.result, s.err
}

type recordingSaver struct {
	calls  int
	path   string
	format persister.Format
	err    error
}

func (s *recordingSaver) Save(_ context.Context, _ *frame.Frame, path string, format persister.Format) (string, error) {
	s.calls++
	s.format = format
	if s.err != nil {
		return "", s.err
	}
	if path == "" {
		path = "/default/spotify_dataset.csv"
	}
	s.path = path
	return path, nil
}

func sampleResult(t *testing.T) *fetcher.Result {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(testutil.SampleCSV), frame.DefaultCSVOptions())
	require.NoError(t, err)
	return &fetcher.Result{Frame: f, OriginalPath: "/data/spotify_dataset_original.csv"}
}

func TestRunPrintsSummaryAndClosingLine(t *testing.T) {
	saver := &recordingSaver{}
	p := New(&stubFetcher{result: sampleResult(t)}, saver, testutil.TestLogger(t), nil)

	var out bytes.Buffer
	res, err := p.Run(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, persister.FormatCSV, saver.format)
	assert.Equal(t, "/default/spotify_dataset.csv", res.SavedPath)
	assert.Equal(t, [2]int{6, 5}, res.Summary.Shape)
	assert.Contains(t, out.String(), "--- Dataset Overview ---")
	assert.True(t, strings.HasSuffix(out.String(),
		"\nDataset download and exploration complete! Data saved to: /default/spotify_dataset.csv\n"))
}

func TestRunTagsLogsWithRunAndDataset(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(&stubFetcher{result: sampleResult(t)}, &recordingSaver{}, zap.New(core),
		&Config{Dataset: "devdope/900k-spotify"})

	res, err := p.Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	stages := logs.FilterMessage("stage completed").All()
	require.Len(t, stages, 3)
	for _, entry := range append(stages, logs.FilterMessage("pipeline completed").All()...) {
		fields := entry.ContextMap()
		assert.Equal(t, res.RunID, fields["run_id"])
		assert.Equal(t, "devdope/900k-spotify", fields["dataset"])
		assert.Equal(t, "pipeline", fields["component"])
	}
}

func TestRunKeepsRunIDFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(&stubFetcher{result: sampleResult(t)}, &recordingSaver{}, zap.New(core), nil)

	ctx := logger.NewContext(context.Background(), "run-42", "")
	res, err := p.Run(ctx, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "run-42", res.RunID)

	done := logs.FilterMessage("pipeline completed").All()
	require.Len(t, done, 1)
	assert.Equal(t, "run-42", done[0].ContextMap()["run_id"])
	assert.NotContains(t, done[0].ContextMap(), "dataset")
}

func TestRunStopsAtFirstError(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		saver := &recordingSaver{}
		fetchErr := errors.New(errors.ErrorTypeNotFound, "no CSV files found in the downloaded dataset")
		p := New(&stubFetcher{err: fetchErr}, saver, testutil.TestLogger(t), nil)

		var out bytes.Buffer
		_, err := p.Run(context.Background(), &out)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
		assert.Zero(t, saver.calls)
		assert.Empty(t, out.String())
	})

	t.Run("save", func(t *testing.T) {
		saver := &recordingSaver{err: errors.New(errors.ErrorTypeFile, "disk full")}
		p := New(&stubFetcher{result: sampleResult(t)}, saver, testutil.TestLogger(t), nil)

		var out bytes.Buffer
		_, err := p.Run(context.Background(), &out)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
		assert.Empty(t, out.String(), "nothing is printed before the dataset is saved")
	})
}

// EndToEndSuite runs the real components against a fake registry
type EndToEndSuite struct {
	testutil.IntegrationTestSuite
	registry *testutil.FakeRegistry
	client   *kaggle.Client
}

func TestEndToEndSuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(EndToEndSuite))
}

func (s *EndToEndSuite) SetupTest() {
	s.IntegrationTestSuite.SetupTest()

	archive := testutil.ZipArchive(s.T(), map[string]string{
		"spotify_dataset.csv": testutil.TrackRows(50),
		"README.md":           "tracks",
	})
	s.registry = testutil.NewFakeRegistry(s.T(), "devdope", "900k-spotify", archive, "", "")
	s.client = kaggle.NewClient(&kaggle.Config{
		BaseURL:  s.registry.URL(),
		CacheDir: filepath.Join(s.TempDir(), "cache"),
	}, testutil.TestLogger(s.T()))
}

func (s *EndToEndSuite) newPipeline(format persister.Format, opts ...persister.Option) *Pipeline {
	root := filepath.Join(s.TempDir(), "project")
	log := testutil.TestLogger(s.T())
	opts = append(opts, persister.WithProjectRoot(root))
	return New(
		fetcher.New(s.client, log, fetcher.WithProjectRoot(root)),
		persister.New(log, opts...),
		log,
		&Config{Format: format},
	)
}

func (s *EndToEndSuite) TestCSVRun() {
	var out bytes.Buffer
	res, err := s.newPipeline(persister.FormatCSV).Run(s.Context(), &out)
	s.Require().NoError(err)

	dataDir := filepath.Join(s.TempDir(), "project", "data")
	s.Equal(filepath.Join(dataDir, "spotify_dataset.csv"), res.SavedPath)
	s.Equal(filepath.Join(dataDir, fetcher.OriginalFileName), res.OriginalPath)
	s.FileExists(res.OriginalPath)
	s.Equal([2]int{50, 5}, res.Summary.Shape)
	s.Contains(out.String(), "Shape: (50, 5)")

	saved, err := frame.ReadCSVFile(res.SavedPath)
	s.Require().NoError(err)
	original, err := frame.ReadCSVFile(res.OriginalPath)
	s.Require().NoError(err)
	s.True(original.Equal(saved))
}

func (s *EndToEndSuite) TestSecondRunUsesCache() {
	p := s.newPipeline(persister.FormatCSV)
	for i := 0; i < 2; i++ {
		_, err := p.Run(s.Context(), &bytes.Buffer{})
		s.Require().NoError(err)
	}
	s.Equal(1, s.registry.Downloads())
}

func (s *EndToEndSuite) TestParquetFallbackRun() {
	var out bytes.Buffer
	p := s.newPipeline(persister.FormatParquet, persister.WithCapabilities(columnar.NewRegistry()))
	res, err := p.Run(s.Context(), &out)
	s.Require().NoError(err)

	s.Equal(".csv", filepath.Ext(res.SavedPath))
	s.Contains(out.String(), "Data saved to: "+res.SavedPath)
	_, err = os.Stat(strings.TrimSuffix(res.SavedPath, ".csv") + ".parquet")
	s.True(os.IsNotExist(err))
}

func (s *EndToEndSuite) TestMissingCSVFails() {
	s.registry.Archive = testutil.ZipArchive(s.T(), map[string]string{"README.md": "nothing"})

	var out bytes.Buffer
	_, err := s.newPipeline(persister.FormatCSV).Run(s.Context(), &out)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeNotFound))
	s.NoFileExists(filepath.Join(s.TempDir(), "project", "data", fetcher.OriginalFileName))
}
