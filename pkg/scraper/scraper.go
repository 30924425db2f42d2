package scraper

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"threadsdl/internal/downloader"
	"threadsdl/pkg/archive"
	"threadsdl/pkg/browser"
	"threadsdl/pkg/classifier"
	"threadsdl/pkg/config"
	errs "threadsdl/pkg/errors"
	"threadsdl/pkg/extractor"
	"threadsdl/pkg/logger"
	"threadsdl/pkg/manifest"
	"threadsdl/pkg/models"
	"threadsdl/pkg/scroll"
	"threadsdl/pkg/storage"
)

// Status summarizes how a run ended
type Status string

const (
	StatusArchived    Status = "archived"
	StatusNoMedia     Status = "no_media"
	StatusNoDownloads Status = "no_downloads"
)

// Report describes a finished run
type Report struct {
	RunID       string
	Target      models.ProfileTarget
	Status      Status
	Scrolls     int
	Candidates  int
	HighRes     int
	Files       []string
	Skipped     []models.Skipped
	ArchivePath string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Scraper orchestrates discovery, download and archiving
type Scraper struct {
	config     *config.Config
	launch     Launcher
	fetcher    downloader.Fetcher
	classifier *classifier.Classifier
	reporter   Reporter
	logger     logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithLauncher replaces the browser launcher
func WithLauncher(l Launcher) Option {
	return func(s *Scraper) { s.launch = l }
}

// WithFetcher replaces the HTTP fetcher used for media and static pages
func WithFetcher(f downloader.Fetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithReporter registers a progress reporter
func WithReporter(r Reporter) Option {
	return func(s *Scraper) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scraper from cfg
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	c, err := classifier.New(cfg.Filter.LowResPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	s := &Scraper{
		config:     cfg,
		launch:     LaunchRod,
		classifier: c,
		reporter:   nopReporter{},
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		client := downloader.NewClient(cfg.Download.Timeout, cfg.Download.UserAgent, cfg.Download.MaxFileSize, s.logger)
		for name, value := range cfg.Download.Headers {
			client.SetHeader(name, value)
		}
		s.fetcher = client
	}

	return s, nil
}

// Run archives the media of the profile at rawURL. Invalid input is
// rejected before any browser is launched. The browser is closed before
// downloads begin.
func (s *Scraper) Run(ctx context.Context, rawURL string) (*Report, error) {
	target, err := models.ParseProfileTarget(rawURL)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Target:    target,
		StartedAt: time.Now(),
	}
	log := s.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"username": target.Username,
	})
	defer func() { report.FinishedAt = time.Now() }()

	s.reporter.Status(fmt.Sprintf("Target username: %s", target.Username))
	s.reporter.Status(fmt.Sprintf("ZIP output will be: %s", target.ArchiveName()))

	started := time.Now()
	logger.LogStage(log, "discover", map[string]interface{}{"static": s.config.Browser.Static})
	var candidates []string
	if s.config.Browser.Static {
		candidates, err = s.discoverStatic(ctx, target)
	} else {
		candidates, report.Scrolls, err = s.discoverLive(ctx, target, log)
	}
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)
	logger.LogStageDone(log, "discover", started, map[string]interface{}{"candidates": len(candidates)})

	highRes := s.classifier.Filter(candidates)
	report.HighRes = len(highRes)
	if len(highRes) == 0 {
		s.reporter.Status("No high-res media found.")
		log.Warn("No high-resolution media found")
		report.Status = StatusNoMedia
		return report, nil
	}
	s.reporter.Status(fmt.Sprintf("Found %d high-res media files. Starting downloads...", len(highRes)))

	started = time.Now()
	logger.LogStage(log, "download", map[string]interface{}{
		"urls":        len(highRes),
		"concurrency": s.config.Download.Concurrency,
	})
	d := downloader.New(s.fetcher,
		downloader.WithConcurrency(s.config.Download.Concurrency),
		downloader.WithObserver(s.reporter),
		downloader.WithLogger(log),
	)
	batch := d.DownloadAll(ctx, highRes, target.Username)
	report.Skipped = batch.Skipped
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("download interrupted: %w", err)
	}
	logger.LogStageDone(log, "download", started, map[string]interface{}{
		"downloaded": len(batch.Results),
		"skipped":    len(batch.Skipped),
	})

	if len(batch.Results) == 0 {
		s.reporter.Status("No files were downloaded.")
		log.Warn("No files were downloaded")
		report.Status = StatusNoDownloads
		return report, nil
	}

	path, err := s.writeArchive(report, batch, log)
	if err != nil {
		return report, err
	}
	report.ArchivePath = path
	report.Status = StatusArchived
	s.reporter.Status(fmt.Sprintf("ZIP saved: %s", path))

	return report, nil
}

func (s *Scraper) discoverLive(ctx context.Context, target models.ProfileTarget, log logger.Logger) ([]string, int, error) {
	s.reporter.Status("Launching headless browser...")
	b, err := s.launch(ctx, browser.OptionsFromConfig(s.config.Browser))
	if err != nil {
		return nil, 0, typed(errs.ErrorTypeBrowser, "failed to launch browser", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, 0, typed(errs.ErrorTypeBrowser, "failed to open page", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.WithError(err).Debug("Failed to close page")
		}
	}()

	s.reporter.Status(fmt.Sprintf("Navigating to profile: %s", target.RawURL))
	if err := page.Navigate(ctx, target.RawURL); err != nil {
		return nil, 0, typed(errs.ErrorTypeNavigation, "failed to load profile", err)
	}

	s.reporter.Status("Scrolling to load all posts...")
	scrolls, err := scroll.New(s.config.Scroll.SettleInterval).Materialize(ctx, page, s.config.Scroll.MaxIterations)
	if err != nil {
		return nil, scrolls, typed(errs.ErrorTypeBrowser, "failed to materialize page", err)
	}
	log.DebugWithFields("Page materialized", map[string]interface{}{"scrolls": scrolls})

	s.reporter.Status("Extracting media URLs...")
	urls, err := extractor.Extract(ctx, &extractor.ScriptCollector{Page: page})
	if err != nil {
		return nil, scrolls, typed(errs.ErrorTypeBrowser, "failed to extract media", err)
	}
	return urls, scrolls, nil
}

func (s *Scraper) discoverStatic(ctx context.Context, target models.ProfileTarget) ([]string, error) {
	s.reporter.Status(fmt.Sprintf("Fetching profile HTML: %s", target.RawURL))
	resp, err := s.fetcher.Fetch(ctx, target.RawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation, "failed to fetch profile", err)
	}

	collector, err := extractor.NewDocumentCollector(bytes.NewReader(resp.Body), target.RawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation, "failed to parse profile", err)
	}

	s.reporter.Status("Extracting media URLs...")
	return extractor.Extract(ctx, collector)
}

func (s *Scraper) writeArchive(report *Report, batch downloader.Batch, log logger.Logger) (string, error) {
	s.reporter.Status(fmt.Sprintf("Creating ZIP with %d files...", len(batch.Results)))

	builder := archive.New()
	builder.SetLevel(s.config.Output.CompressionLevel)
	for _, r := range batch.Results {
		if err := builder.Add(r.Filename, r.Data); err != nil {
			return "", err
		}
		report.Files = append(report.Files, r.Filename)
	}

	if s.config.Output.IncludeManifest {
		m := manifest.New(report.RunID, report.Target, report.StartedAt)
		m.Candidates = report.Candidates
		for _, r := range batch.Results {
			m.AddResult(r)
		}
		for _, sk := range batch.Skipped {
			m.AddSkipped(sk)
		}
		m.Finish(time.Now())

		data, err := m.Marshal()
		if err != nil {
			return "", errs.Wrap(errs.ErrorTypeArchive, "failed to build manifest", err)
		}
		if err := builder.Add(manifest.Filename, data); err != nil {
			return "", err
		}
	}

	manager, err := storage.NewManager(s.config.Output.Directory, s.config.Output.OverwriteExisting)
	if err != nil {
		return "", err
	}
	path, err := manager.WriteArchive(report.Target.ArchiveName(), builder)
	if err != nil {
		return "", err
	}

	log.InfoWithFields("Archive written", map[string]interface{}{
		"path":    path,
		"entries": builder.Len(),
	})
	log.DebugWithFields("Archive contents", map[string]interface{}{"names": builder.Names()})
	return path, nil
}

// typed wraps err with t unless it already carries a type
func typed(t errs.ErrorType, msg string, err error) error {
	if errs.TypeOf(err) != errs.ErrorTypeUnknown {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errs.Wrap(t, msg, err)
}
