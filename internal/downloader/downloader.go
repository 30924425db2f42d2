// Package downloader fetches candidate media URLs and turns them into
// named archive entries. Individual failures are recorded and skipped.
package downloader

import (
	"context"
	"sort"
	"sync"

	errs "threadsdl/pkg/errors"
	"threadsdl/pkg/logger"
	"threadsdl/pkg/models"
)

// Outcome is the result of one job: exactly one of Result or Skipped is set
type Outcome struct {
	Index   int
	Total   int
	Result  *models.DownloadResult
	Skipped *models.Skipped
}

// Batch collects all outcomes of a run
type Batch struct {
	Results []models.DownloadResult
	Skipped []models.Skipped
}

// Observer is notified as downloads progress. Calls may come from several
// workers but are serialized by the Downloader.
type Observer interface {
	DownloadStarted(index, total int, url string)
	DownloadFinished(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) DownloadStarted(int, int, string) {}
func (nopObserver) DownloadFinished(Outcome)          {}

// Option configures a Downloader
type Option func(*Downloader)

// WithConcurrency sets the number of workers
func WithConcurrency(n int) Option {
	return func(d *Downloader) { d.concurrency = n }
}

// WithObserver registers a progress observer
func WithObserver(o Observer) Option {
	return func(d *Downloader) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// Downloader runs the fetch-and-name pipeline
type Downloader struct {
	fetcher     Fetcher
	concurrency int
	observer    Observer
	logger      logger.Logger

	mu      sync.Mutex
	ordinal int
}

// New creates a Downloader using fetcher for HTTP access
func New(fetcher Fetcher, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher:     fetcher,
		concurrency: 1,
		observer:    nopObserver{},
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAll fetches every URL and names successes
// {username}_{ordinal:03d}_{base}. Ordinals start at 1 and only advance on
// success. Results are ordered by ordinal, skips by discovery order.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, username string) Batch {
	d.mu.Lock()
	d.ordinal = 0
	d.mu.Unlock()

	total := len(urls)
	pool := NewWorkerPool(ctx, d.concurrency, func(ctx context.Context, job Job) Outcome {
		return d.process(ctx, job, total, username)
	}, d.logger)
	pool.Start()

	go func() {
		for i, u := range urls {
			if err := pool.Submit(Job{Index: i, URL: u}); err != nil {
				break
			}
		}
		if err := pool.Stop(); err != nil {
			d.logger.WithError(err).Warn("Download pipeline interrupted")
		}
	}()

	var batch Batch
	var skipped []Outcome
	for outcome := range pool.Results() {
		if outcome.Result != nil {
			batch.Results = append(batch.Results, *outcome.Result)
		} else if outcome.Skipped != nil {
			skipped = append(skipped, outcome)
		}
	}

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].Ordinal < batch.Results[j].Ordinal
	})
	sort.Slice(skipped, func(i, j int) bool {
		return skipped[i].Index < skipped[j].Index
	})
	for _, o := range skipped {
		batch.Skipped = append(batch.Skipped, *o.Skipped)
	}

	return batch
}

func (d *Downloader) process(ctx context.Context, job Job, total int, username string) Outcome {
	d.notifyStarted(job.Index+1, total, job.URL)

	outcome := Outcome{Index: job.Index, Total: total}
	resp, err := d.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		outcome.Skipped = &models.Skipped{
			SourceURL: job.URL,
			Reason:    errs.TypeOf(err),
			Err:       err,
		}
		logger.LogSkip(d.logger, job.URL, string(outcome.Skipped.Reason), err)
		d.notifyFinished(outcome)
		return outcome
	}

	ext := ExtensionFor(resp.ContentType)
	base := BaseName(job.URL, ext)

	d.mu.Lock()
	d.ordinal++
	ordinal := d.ordinal
	d.mu.Unlock()

	outcome.Result = &models.DownloadResult{
		SourceURL:   job.URL,
		Filename:    Filename(username, ordinal, base),
		ContentType: resp.ContentType,
		Data:        resp.Body,
		Ordinal:     ordinal,
	}
	logger.LogDownload(d.logger, username, outcome.Result.Filename, ordinal, len(resp.Body))
	d.notifyFinished(outcome)
	return outcome
}

func (d *Downloader) notifyStarted(index, total int, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer.DownloadStarted(index, total, url)
}

func (d *Downloader) notifyFinished(outcome Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer.DownloadFinished(outcome)
}
