// Package realtime propagates database change notifications to connected
// dashboards. Postgres triggers NOTIFY on every write to the core tables; the
// listener coalesces bursts and invokes a refetch callback.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Channel is the NOTIFY channel raised by the schema triggers.
const Channel = "mortgageflow_changes"

const defaultDebounce = 250 * time.Millisecond

// Listener holds a dedicated connection on LISTEN and fires onChange after
// each burst of notifications. The payload is ignored: consumers refetch the
// full data set, so a burst of writes costs one refetch.
type Listener struct {
	connString string
	channel    string
	debounce   time.Duration
	onChange   func(context.Context)
	log        *zap.Logger
}

// NewListener builds a Listener on the default channel.
func NewListener(connString string, onChange func(context.Context), log *zap.Logger) *Listener {
	return &Listener{
		connString: connString,
		channel:    Channel,
		debounce:   defaultDebounce,
		onChange:   onChange,
		log:        log,
	}
}

// WithDebounce overrides the coalescing window.
func (l *Listener) WithDebounce(d time.Duration) *Listener {
	l.debounce = d
	return l
}

// Run connects, listens, and blocks until ctx is cancelled. Context
// cancellation is a clean shutdown, not an error.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("realtime: connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return fmt.Errorf("realtime: listen on %s: %w", l.channel, err)
	}
	l.log.Info("realtime listener started", zap.String("channel", l.channel))

	events := make(chan struct{}, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			if _, err := conn.WaitForNotification(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("realtime: wait for notification: %w", err)
			}
			select {
			case events <- struct{}{}:
			default:
			}
		}
	})
	g.Go(func() error {
		coalesce(ctx, events, l.debounce, func() {
			l.log.Debug("change burst settled, refetching")
			l.onChange(ctx)
		})
		return nil
	})

	err = g.Wait()
	l.log.Info("realtime listener stopped")
	return err
}

// coalesce waits for an event, then keeps extending a quiet-period timer while
// further events arrive; fn runs once per settled burst.
func coalesce(ctx context.Context, events <-chan struct{}, quiet time.Duration, fn func()) {
	timer := time.NewTimer(quiet)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-events:
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
			pending = true
		case <-timer.C:
			pending = false
			fn()
		}
	}
}
