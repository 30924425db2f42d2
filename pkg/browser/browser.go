// Package browser drives a headless Chromium through go-rod.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"threadsdl/pkg/config"
	errs "threadsdl/pkg/errors"
)

// Options control how the browser is launched and how pages navigate
type Options struct {
	Headless          bool
	NoSandbox         bool
	Bin               string
	UserAgent         string
	NavigationTimeout time.Duration
	WaitIdle          time.Duration
}

// OptionsFromConfig maps the browser config section onto launch options
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	return Options{
		Headless:          cfg.Headless,
		NoSandbox:         cfg.NoSandbox,
		Bin:               cfg.Bin,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
		WaitIdle:          cfg.WaitIdle,
	}
}

// Browser wraps a launched browser process and its connection
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
}

// Launch starts a browser process and connects to it
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.NoSandbox {
		l = l.NoSandbox(true).Set("disable-setuid-sandbox")
	}
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeBrowser, "failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL).NoDefaultDevice().Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, errs.Wrap(errs.ErrorTypeBrowser, "failed to connect to browser", err)
	}

	return &Browser{browser: b, launcher: l, opts: opts}, nil
}

// NewPage opens a blank tab
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeBrowser, "failed to open page", err)
	}

	if b.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent}); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeBrowser, "failed to set user agent", err)
		}
	}

	return &Page{page: page, opts: b.opts}, nil
}

// Close shuts the browser down, kills the process and removes its
// user data directory
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil && b.launcher.PID() != 0 {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}

// Page is one browser tab
type Page struct {
	page *rod.Page
	opts Options
}

// Navigate loads url and waits for the load event, then for the network to
// go quiet for WaitIdle.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if p.opts.NavigationTimeout > 0 {
		page = page.Timeout(p.opts.NavigationTimeout)
		defer page.CancelTimeout()
	}

	var waitIdle func()
	if p.opts.WaitIdle > 0 {
		waitIdle = page.WaitRequestIdle(p.opts.WaitIdle, nil, nil, nil)
	}

	if err := page.Navigate(url); err != nil {
		return &errs.Error{Type: errs.ErrorTypeNavigation, Message: "failed to navigate", URL: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		return &errs.Error{Type: errs.ErrorTypeNavigation, Message: "page did not finish loading", URL: url, Err: err}
	}
	if waitIdle != nil {
		waitIdle()
	}

	return nil
}

// Evaluate runs script and decodes its JSON result into out
func (p *Page) Evaluate(ctx context.Context, script string, out interface{}) error {
	res, err := p.page.Context(ctx).Eval(script)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "script evaluation failed", err)
	}
	if out == nil {
		return nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// ScrollHeight returns document.body.scrollHeight
func (p *Page) ScrollHeight(ctx context.Context) (int, error) {
	var height int
	if err := p.Evaluate(ctx, `() => document.body.scrollHeight`, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// ScrollToBottom scrolls the window to the current document height
func (p *Page) ScrollToBottom(ctx context.Context) error {
	return p.Evaluate(ctx, `() => window.scrollTo(0, document.body.scrollHeight)`, nil)
}

// Close closes the tab
func (p *Page) Close() error {
	return p.page.Close()
}
