// Package signal cancels a sync when the user interrupts it.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clog "github.com/xrsl/wfsync/pkg/log"
)

// WithInterrupt returns a context that is cancelled on SIGINT or SIGTERM.
// The cancel function must be called to stop listening.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return notify(parent, os.Interrupt, syscall.SIGTERM)
}

func notify(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	go func() {
		select {
		case sig := <-sigCh:
			clog.Debug("received signal", "signal", sig)
			cancel(&Interrupted{Signal: sig})
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// Interrupted is the cancellation cause recorded when a signal arrives.
type Interrupted struct {
	Signal os.Signal
}

func (e *Interrupted) Error() string {
	return "interrupted by " + e.Signal.String()
}

// Cause returns the signal that cancelled ctx, or nil.
func Cause(ctx context.Context) os.Signal {
	if ie, ok := context.Cause(ctx).(*Interrupted); ok {
		return ie.Signal
	}
	return nil
}
