package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/expertfinder/internal/dialog"
)

// TurnHandler runs one dialog turn.
type TurnHandler interface {
	Handle(ctx context.Context, req dialog.Request) error
}

// Dispatcher runs acknowledged deliveries in the background, at most
// maxInflight at a time. Deliveries share nothing; turns for different users
// run concurrently.
type Dispatcher struct {
	handler TurnHandler
	group   errgroup.Group
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. maxInflight <= 0 means no limit.
func NewDispatcher(h TurnHandler, maxInflight int) *Dispatcher {
	d := &Dispatcher{handler: h, logger: slog.Default()}
	if maxInflight > 0 {
		d.group.SetLimit(maxInflight)
	}
	return d
}

// Dispatch schedules req and returns immediately. The turn outlives ctx's
// cancellation but keeps its values. It reports false, dropping the delivery,
// when the dispatcher is at capacity.
func (d *Dispatcher) Dispatch(ctx context.Context, deliveryID string, req dialog.Request) bool {
	ctx = context.WithoutCancel(ctx)
	log := d.logger.With("delivery_id", deliveryID, "action_id", req.ActionID)
	ctx = dialog.WithLogger(ctx, log)

	ok := d.group.TryGo(func() error {
		defer func() {
			if p := recover(); p != nil {
				log.Error("dialog turn panicked", "panic", fmt.Sprint(p))
			}
		}()

		start := time.Now()
		if err := d.handler.Handle(ctx, req); err != nil {
			log.Error("dialog turn failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
			return nil
		}
		log.Info("dialog turn completed", "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if !ok {
		log.Warn("too many turns in flight, dropping delivery")
	}
	return ok
}

// Wait blocks until every scheduled turn has finished.
func (d *Dispatcher) Wait() {
	d.group.Wait()
}
