package scraper

import (
	"context"

	"threadsdl/internal/downloader"
	"threadsdl/pkg/browser"
	"threadsdl/pkg/extractor"
	"threadsdl/pkg/scroll"
)

// Page is the browser tab a run drives
type Page interface {
	Navigate(ctx context.Context, url string) error
	scroll.Page
	extractor.Evaluator
	Close() error
}

// Browser is a launched browser
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts a browser for one run
type Launcher func(ctx context.Context, opts browser.Options) (Browser, error)

// Reporter receives user-facing progress
type Reporter interface {
	downloader.Observer
	Status(msg string)
}

// LaunchRod starts a go-rod controlled Chromium
func LaunchRod(ctx context.Context, opts browser.Options) (Browser, error) {
	b, err := browser.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return rodBrowser{b}, nil
}

type rodBrowser struct {
	*browser.Browser
}

func (b rodBrowser) NewPage(ctx context.Context) (Page, error) {
	p, err := b.Browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type nopReporter struct{}

func (nopReporter) Status(string)                       {}
func (nopReporter) DownloadStarted(int, int, string)    {}
func (nopReporter) DownloadFinished(downloader.Outcome) {}
