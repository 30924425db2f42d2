package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"threadsdl/internal/downloader"
)

// ProgressDisplay prints one line per download and a closing summary.
// It implements downloader.Observer.
type ProgressDisplay struct {
	mu              sync.Mutex
	out             io.Writer
	username        string
	downloadedCount int
	failedCount     int
	bytesDownloaded int64
	startTime       time.Time
	verbose         bool
}

// NewProgressDisplay creates a display writing to w
func NewProgressDisplay(w io.Writer, username string, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       w,
		username:  username,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

// Status prints a stage message
func (p *ProgressDisplay) Status(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), msg)
}

// DownloadStarted implements downloader.Observer
func (p *ProgressDisplay) DownloadStarted(index, total int, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s Downloading: %s\n", Cyan(fmt.Sprintf("[%d/%d]", index, total)), url)
}

// DownloadFinished implements downloader.Observer
func (p *ProgressDisplay) DownloadFinished(outcome downloader.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case outcome.Result != nil:
		p.downloadedCount++
		p.bytesDownloaded += int64(len(outcome.Result.Data))
		if p.verbose {
			fmt.Fprintf(p.out, "  %s %s • %s\n", Green("✓"), outcome.Result.Filename,
				formatBytes(int64(len(outcome.Result.Data))))
		}
	case outcome.Skipped != nil:
		p.failedCount++
		msg := string(outcome.Skipped.Reason)
		if outcome.Skipped.Err != nil {
			msg = outcome.Skipped.Err.Error()
		}
		fmt.Fprintf(p.out, "  %s Failed: %s - %s\n", Yellow("⚠"), outcome.Skipped.SourceURL, msg)
	}
}

// Complete prints the run summary
func (p *ProgressDisplay) Complete(archivePath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	fmt.Fprintf(p.out, "\n%s Archived %d files from @%s\n", Green("✓"), p.downloadedCount, p.username)
	fmt.Fprintf(p.out, "  %s %s in %s\n", Dim("•"), formatBytes(p.bytesDownloaded), formatDuration(elapsed))
	if p.failedCount > 0 {
		fmt.Fprintf(p.out, "  %s %d downloads failed\n", Dim("•"), p.failedCount)
	}
	if archivePath != "" {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), archivePath)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
