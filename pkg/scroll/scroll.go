// Package scroll materializes lazily loaded pages by scrolling them until
// their document height stops growing.
package scroll

import (
	"context"
	"fmt"
	"time"
)

// DefaultSettleInterval is how long to wait after each scroll for new
// content to render.
const DefaultSettleInterval = 1500 * time.Millisecond

// Page is the part of a browser page the materializer drives
type Page interface {
	ScrollHeight(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error
}

// Materializer runs the scroll-and-wait loop
type Materializer struct {
	settle time.Duration
	wait   func(ctx context.Context, d time.Duration) error
}

// New creates a Materializer waiting settle between scrolls. A non-positive
// settle disables the wait.
func New(settle time.Duration) *Materializer {
	return &Materializer{settle: settle, wait: sleep}
}

// Materialize measures the page height, then scrolls to the bottom and
// re-measures up to maxIterations times. It stops as soon as the height
// does not increase.
func (m *Materializer) Materialize(ctx context.Context, page Page, maxIterations int) (int, error) {
	last, err := page.ScrollHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to measure page height: %w", err)
	}

	scrolls := 0
	for scrolls < maxIterations {
		if err := page.ScrollToBottom(ctx); err != nil {
			return scrolls, fmt.Errorf("failed to scroll page: %w", err)
		}
		scrolls++

		if err := m.wait(ctx, m.settle); err != nil {
			return scrolls, err
		}

		height, err := page.ScrollHeight(ctx)
		if err != nil {
			return scrolls, fmt.Errorf("failed to measure page height: %w", err)
		}
		if height <= last {
			break
		}
		last = height
	}

	return scrolls, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
