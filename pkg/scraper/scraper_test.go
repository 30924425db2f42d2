package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadsdl/internal/downloader"
	"threadsdl/pkg/browser"
	"threadsdl/pkg/config"
	errs "threadsdl/pkg/errors"
	"threadsdl/pkg/extractor"
	"threadsdl/pkg/logger"
	"threadsdl/pkg/manifest"
)

type fakePage struct {
	heights   []int
	measured  int
	scrolls   int
	navigated string
	navErr    error
	snapshot  extractor.Snapshot
	closed    int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = url
	return p.navErr
}

func (p *fakePage) ScrollHeight(ctx context.Context) (int, error) {
	if len(p.heights) == 0 {
		return 0, nil
	}
	i := p.measured
	if i >= len(p.heights) {
		i = len(p.heights) - 1
	}
	p.measured++
	return p.heights[i], nil
}

func (p *fakePage) ScrollToBottom(ctx context.Context) error {
	p.scrolls++
	return nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	data, err := json.Marshal(p.snapshot)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

type fakeBrowser struct {
	page     *fakePage
	launched int
	closed   int
}

func (b *fakeBrowser) launcher() Launcher {
	return func(ctx context.Context, opts browser.Options) (Browser, error) {
		b.launched++
		return b, nil
	}
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

type recordingReporter struct {
	statuses []string
	started  int
	finished int
}

func (r *recordingReporter) Status(msg string)                      { r.statuses = append(r.statuses, msg) }
func (r *recordingReporter) DownloadStarted(int, int, string)       { r.started++ }
func (r *recordingReporter) DownloadFinished(o downloader.Outcome) { r.finished++ }

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/missing/img1.jpg", http.NotFound)
	mux.HandleFunc("/@alice", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body>
			<img src="/p240x240/img1.jpg">
			<img srcset="/full/img2.jpg 1080w, /full/img3.jpg 2x">
			<div style="background-image: url('/full/bg')"></div>
		</body></html>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		io.WriteString(w, "jpeg:"+r.URL.Path)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scroll.SettleInterval = 0
	cfg.Output.Directory = t.TempDir()
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, b *fakeBrowser, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{WithLogger(logger.NewNopLogger())}
	if b != nil {
		base = append(base, WithLauncher(b.launcher()))
	}
	s, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func attributes(urls ...string) extractor.Snapshot {
	var snap extractor.Snapshot
	for _, u := range urls {
		snap.Sources = append(snap.Sources, extractor.Source{Kind: extractor.Attribute, Value: u})
	}
	return snap
}

func zipEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = content
	}
	return out
}

func names(entries map[string][]byte) []string {
	var out []string
	for name := range entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func TestRunArchivesHighResMediaOnly(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{
		heights:  []int{100, 200, 200},
		snapshot: attributes(server.URL+"/p240x240/img1.jpg", server.URL+"/full/img2.jpg"),
	}}
	reporter := &recordingReporter{}

	report, err := newTestScraper(t, cfg, b, WithReporter(reporter)).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)

	assert.Equal(t, StatusArchived, report.Status)
	assert.Equal(t, "alice", report.Target.Username)
	assert.Equal(t, 2, report.Scrolls)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.HighRes)
	assert.Equal(t, filepath.Join(cfg.Output.Directory, "alice.zip"), report.ArchivePath)
	assert.NotEmpty(t, report.RunID)

	entries := zipEntries(t, report.ArchivePath)
	assert.Equal(t, []string{"alice_001_img2.jpg"}, names(entries))
	assert.Equal(t, []byte("jpeg:/full/img2.jpg"), entries["alice_001_img2.jpg"])

	assert.Equal(t, "https://www.threads.net/@alice", b.page.navigated)
	assert.Equal(t, 1, b.page.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 1, reporter.started)
	assert.Contains(t, reporter.statuses, "Launching headless browser...")
}

func TestRunSkipsFailedDownloads(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{
		snapshot: attributes(server.URL+"/missing/img1.jpg", server.URL+"/full/img2.jpg"),
	}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)

	assert.Equal(t, StatusArchived, report.Status)
	assert.Equal(t, []string{"alice_001_img2.jpg"}, report.Files)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, errs.ErrorTypeStatus, report.Skipped[0].Reason)
	assert.Equal(t, []string{"alice_001_img2.jpg"}, names(zipEntries(t, report.ArchivePath)))
}

func TestRunWithNoCandidatesWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{heights: []int{100, 100}}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)

	assert.Equal(t, StatusNoMedia, report.Status)
	assert.Empty(t, report.ArchivePath)
	assert.Equal(t, 1, b.closed)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "alice.zip"))
}

func TestRunWithOnlyLowResCandidates(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{snapshot: attributes("https://x/thumb/a.jpg", "https://x/s150x150/b.jpg")}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)
	assert.Equal(t, StatusNoMedia, report.Status)
	assert.Equal(t, 2, report.Candidates)
}

func TestRunWhenEveryDownloadFails(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{snapshot: attributes(server.URL + "/missing/img1.jpg")}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)

	assert.Equal(t, StatusNoDownloads, report.Status)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "alice.zip"))
}

func TestRunRejectsInvalidInputBeforeLaunching(t *testing.T) {
	b := &fakeBrowser{page: &fakePage{}}
	s := newTestScraper(t, testConfig(t), b)

	for _, input := range []string{"", "   ", "www.threads.net/@alice"} {
		_, err := s.Run(context.Background(), input)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrorTypeInput))
	}
	assert.Zero(t, b.launched)
}

func TestRunNavigationFailureClosesBrowser(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}}

	_, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://nowhere.invalid/@alice")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
	assert.True(t, errs.IsFatal(errs.TypeOf(err)))
	assert.Equal(t, 1, b.page.closed)
	assert.Equal(t, 1, b.closed)
}

func TestRunLaunchFailure(t *testing.T) {
	failing := func(ctx context.Context, opts browser.Options) (Browser, error) {
		return nil, errors.New("chromium not found")
	}
	s := newTestScraper(t, testConfig(t), nil, WithLauncher(failing))

	_, err := s.Run(context.Background(), "https://www.threads.net/@alice")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeBrowser))
}

func TestRunDefaultsUsername(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{snapshot: attributes(server.URL + "/full/a")}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/profile/123")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Directory, "threads_user.zip"), report.ArchivePath)
	assert.Equal(t, []string{"threads_user_001_a.jpeg"}, report.Files)
}

func TestRunIncludesManifest(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	cfg.Output.IncludeManifest = true
	b := &fakeBrowser{page: &fakePage{
		snapshot: attributes(server.URL+"/missing/img1.jpg", server.URL+"/full/img2.jpg"),
	}}

	log := logger.NewTestLogger()

	report, err := newTestScraper(t, cfg, b, WithLogger(log)).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)

	entries := zipEntries(t, report.ArchivePath)
	assert.Equal(t, []string{"alice_001_img2.jpg", manifest.Filename}, names(entries))

	assert.True(t, log.HasMessage("Archive written"))
	var contents *logger.LogMessage
	for _, msg := range log.GetMessagesByLevel("DEBUG") {
		if msg.Message == "Archive contents" {
			contents = &msg
		}
	}
	require.NotNil(t, contents)
	assert.Equal(t, []string{"alice_001_img2.jpg", manifest.Filename}, contents.Fields["names"])
	assert.Equal(t, report.RunID, contents.Fields["run_id"])

	m, err := manifest.Parse(entries[manifest.Filename])
	require.NoError(t, err)
	assert.Equal(t, report.RunID, m.RunID)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "alice_001_img2.jpg", m.Entries[0].Filename)
	require.Len(t, m.Skipped, 1)
	assert.Equal(t, "status", m.Skipped[0].Reason)
}

func TestRunRespectsOverwriteSetting(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	cfg.Output.OverwriteExisting = false
	existing := filepath.Join(cfg.Output.Directory, "alice.zip")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

	b := &fakeBrowser{page: &fakePage{snapshot: attributes(server.URL + "/full/img2.jpg")}}
	_, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))

	data, _ := os.ReadFile(existing)
	assert.Equal(t, "keep", string(data))
}

func TestRunStaticMode(t *testing.T) {
	server := newMediaServer(t)
	cfg := testConfig(t)
	cfg.Browser.Static = true
	b := &fakeBrowser{page: &fakePage{}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), server.URL+"/@alice")
	require.NoError(t, err)

	assert.Zero(t, b.launched)
	assert.Equal(t, 4, report.Candidates)
	assert.Equal(t, []string{
		"alice_001_img2.jpg",
		"alice_002_img3.jpg",
		"alice_003_bg.jpeg",
	}, report.Files)
}

func TestRunSendsConfiguredHeaders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://www.threads.net/" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		io.WriteString(w, "png")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{snapshot: attributes(server.URL + "/full/a.png")}}

	report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)
	assert.Equal(t, StatusNoDownloads, report.Status)

	cfg.Download.Headers = map[string]string{"Referer": "https://www.threads.net/"}
	report, err = newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, report.Status)
	assert.Equal(t, []string{"alice_001_a.png"}, report.Files)
}

func TestRunAppliesCompressionLevel(t *testing.T) {
	payload := strings.Repeat("threads", 8192)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		io.WriteString(w, payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	archiveSize := func(level int) int64 {
		cfg := testConfig(t)
		cfg.Output.CompressionLevel = level
		b := &fakeBrowser{page: &fakePage{snapshot: attributes(server.URL + "/full/a.jpg")}}

		report, err := newTestScraper(t, cfg, b).Run(context.Background(), "https://www.threads.net/@alice")
		require.NoError(t, err)
		assert.Equal(t, []byte(payload), zipEntries(t, report.ArchivePath)["alice_001_a.jpg"])

		info, err := os.Stat(report.ArchivePath)
		require.NoError(t, err)
		return info.Size()
	}

	assert.Greater(t, archiveSize(flate.NoCompression), int64(len(payload)))
	assert.Less(t, archiveSize(flate.BestCompression), int64(len(payload)/10))
}

type failingFetcher struct {
	requested []string
}

func (f *failingFetcher) Fetch(ctx context.Context, rawURL string) (*downloader.Response, error) {
	f.requested = append(f.requested, rawURL)
	return nil, &errs.Error{Type: errs.ErrorTypeStatus, Code: http.StatusForbidden, Message: "forbidden", URL: rawURL}
}

func TestRunStaticModeFetchFailureIsNavigationError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.Static = true
	fetcher := &failingFetcher{}

	_, err := newTestScraper(t, cfg, nil, WithFetcher(fetcher)).Run(context.Background(), "https://www.threads.net/@alice")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
	assert.Equal(t, []string{"https://www.threads.net/@alice"}, fetcher.requested)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "alice.zip"))
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.LowResPatterns = []string{"("}
	_, err := New(cfg)
	assert.Error(t, err)
}
