package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xau-data/internal/descriptor"
	"xau-data/internal/faults"
	"xau-data/internal/kaggle"
	"xau-data/internal/model"
	"xau-data/internal/snapshot"
)

const testSlug = "owner/gold"

type fakeFetcher struct {
	bars   []model.Bar
	err    error
	cutoff time.Time
	calls  int
}

func (f *fakeFetcher) FetchSince(_ context.Context, cutoff time.Time) ([]model.Bar, error) {
	f.calls++
	f.cutoff = cutoff
	return f.bars, f.err
}

func (f *fakeFetcher) Name() string { return "fake" }
func (f *fakeFetcher) Close() error { return nil }

type fakePublisher struct {
	calls  int
	folder string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, folder string, _ descriptor.Descriptor, _ string) error {
	p.calls++
	p.folder = folder
	return p.err
}

func (p *fakePublisher) Name() string { return "fake" }

type fakeDownloader struct {
	err     error
	content string // baseline CSV written into destDir when err is nil
	file    string
}

func (d *fakeDownloader) DownloadDataset(_ context.Context, _, destDir string) error {
	if d.err != nil {
		return d.err
	}
	name := d.file
	if name == "" {
		name = "XAU_1m_data.csv"
	}
	return os.WriteFile(filepath.Join(destDir, name), []byte(d.content), 0644)
}

const baselineCSV = "Date,Open,High,Low,Close,Volume\n" +
	"2024-01-01 00:00:00,2063,2064,2062,2063.5,5\n"

func newBars(minutes ...int) []model.Bar {
	bars := make([]model.Bar, len(minutes))
	for i, m := range minutes {
		bars[i] = model.Bar{
			Time: time.Date(2024, 1, 1, 0, m, 0, 0, time.UTC),
			Open: 2063, High: 2065, Low: 2062, Close: 2064, Volume: 1,
		}
	}
	return bars
}

func testRunner(t *testing.T, fetcher *fakeFetcher, pub *fakePublisher, dl *fakeDownloader) *Runner {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", base) // keep kaggle.json provisioning inside the sandbox
	cfg := &Config{
		Symbol:       "XAUUSD",
		DatasetSlug:  testSlug,
		DatasetTitle: "Gold",
		DataDir:      filepath.Join(base, "data"),
		MergedDir:    filepath.Join(base, "merged_data"),
		TargetFile:   "XAU_1m_data.csv",
	}
	return &Runner{
		Cfg:        cfg,
		Fetcher:    fetcher,
		Publisher:  pub,
		Downloader: dl,
		Creds:      kaggle.Creds{Username: "u", Key: "k"},
	}
}

func TestRunPublishesMergedSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1, 2)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, r.Cfg.MergedDir, pub.folder)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), fetcher.cutoff)

	bars, err := snapshot.Read(r.Cfg.MergedPath())
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	d, err := descriptor.Load(r.Cfg.MergedDir)
	require.NoError(t, err)
	assert.Equal(t, testSlug, d.ID)
}

func TestRunSkipsPublishWhenNothingNew(t *testing.T) {
	fetcher := &fakeFetcher{}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	require.NoError(t, r.Run(context.Background()))

	assert.Zero(t, pub.calls)
	_, err := os.Stat(r.Cfg.MergedPath())
	assert.True(t, os.IsNotExist(err), "nothing is written when there is no update")
}

func TestRunSkipsPublishWhenAllRowsAtOrBelowMark(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(0)} // exactly the high-water-mark
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, pub.calls)
}

func TestRunDegradesToStaleBaseline(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{err: assert.AnError})

	// Local snapshot left over from a previous run.
	require.NoError(t, os.MkdirAll(r.Cfg.DataDir, 0755))
	require.NoError(t, os.WriteFile(r.Cfg.TargetPath(), []byte(baselineCSV), 0644))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, pub.calls)
}

func TestRunAbortsWithoutBaselineOrLocalData(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{err: assert.AnError})

	err := r.Run(context.Background())

	var pre *faults.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Zero(t, fetcher.calls)
	assert.Zero(t, pub.calls)
}

func TestRunAbortsOnCorruptBaseline(t *testing.T) {
	corrupt := "Date,Open,High,Low,Close,Volume\nnot-a-date,1,2,0.5,1.5,7\n"
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: corrupt})

	err := r.Run(context.Background())

	require.Error(t, err)
	assert.True(t, faults.IsFatalData(err))
	assert.Zero(t, pub.calls)
}

func TestRunAbortsOnFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: &faults.ConnectionError{Target: "postgres", Err: assert.AnError}}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	err := r.Run(context.Background())

	var ce *faults.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, pub.calls)
}

func TestRunAbortsOnPublishFailure(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{err: &faults.ConnectionError{Target: "kaggle", Err: assert.AnError}}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	err := r.Run(context.Background())

	require.Error(t, err)
	// The merged snapshot on disk stays intact for inspection.
	_, statErr := os.Stat(r.Cfg.MergedPath())
	assert.NoError(t, statErr)
}

func TestRunResolvesAlternateFileName(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV, file: "XAUUSD_1m.csv"})

	require.NoError(t, r.Run(context.Background()))

	bars, err := snapshot.Read(filepath.Join(r.Cfg.MergedDir, "XAUUSD_1m.csv"))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestRunClearsMergedDirOnPrepare(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})

	require.NoError(t, os.MkdirAll(r.Cfg.MergedDir, 0755))
	leftover := filepath.Join(r.Cfg.MergedDir, "stale.csv")
	require.NoError(t, os.WriteFile(leftover, []byte("junk"), 0644))

	require.NoError(t, r.Run(context.Background()))

	_, err := os.Stat(leftover)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveTargetFilePrefers1mMatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"XAU_1d_data.csv", "XAU_1m_data_v2.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	name, err := resolveTargetFile(dir, "missing.csv")

	require.NoError(t, err)
	assert.Equal(t, "XAU_1m_data_v2.csv", name)
}

func TestMirrorCopyWritten(t *testing.T) {
	fetcher := &fakeFetcher{bars: newBars(1)}
	pub := &fakePublisher{}
	r := testRunner(t, fetcher, pub, &fakeDownloader{content: baselineCSV})
	r.Cfg.MirrorFmt = "json"

	require.NoError(t, r.Run(context.Background()))

	_, err := os.Stat(filepath.Join(r.Cfg.MergedDir, "XAU_1m_data.json"))
	assert.NoError(t, err)
}
