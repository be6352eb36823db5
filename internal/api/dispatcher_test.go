package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/kalambet/expertfinder/internal/dialog"
)

type blockingHandler struct {
	started chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Handle(_ context.Context, _ dialog.Request) error {
	h.started <- struct{}{}
	<-h.release
	return nil
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &blockingHandler{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(h, 1)

	if !d.Dispatch(context.Background(), "d1", dialog.Request{ActionID: "STOP"}) {
		t.Fatal("first Dispatch = false, want true")
	}
	<-h.started

	if d.Dispatch(context.Background(), "d2", dialog.Request{ActionID: "STOP"}) {
		t.Error("second Dispatch = true, want false while at capacity")
	}

	close(h.release)
	d.Wait()
}

type funcHandler func(ctx context.Context, req dialog.Request) error

func (f funcHandler) Handle(ctx context.Context, req dialog.Request) error { return f(ctx, req) }

func TestDispatcher_OutlivesRequestContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	var canceled atomic.Bool
	d := NewDispatcher(funcHandler(func(ctx context.Context, _ dialog.Request) error {
		canceled.Store(ctx.Err() != nil)
		return nil
	}), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, "d1", dialog.Request{})
	d.Wait()

	if canceled.Load() {
		t.Error("turn saw a canceled context, want it detached from the request")
	}
}

func TestDispatcher_SurvivesPanicsAndErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	d := NewDispatcher(funcHandler(func(_ context.Context, req dialog.Request) error {
		calls.Add(1)
		switch req.ActionID {
		case "panic":
			panic("boom")
		case "fail":
			return errors.New("gateway down")
		}
		return nil
	}), 0)

	for _, id := range []string{"panic", "fail", "ok"} {
		if !d.Dispatch(context.Background(), id, dialog.Request{ActionID: id}) {
			t.Errorf("Dispatch(%s) = false, want true", id)
		}
	}
	d.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
}

func TestDispatcher_TurnLogsCarryDeliveryID(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer
	d := NewDispatcher(funcHandler(func(ctx context.Context, _ dialog.Request) error {
		log := dialog.LoggerFrom(ctx)
		if log == nil {
			return errors.New("no logger in turn context")
		}
		log.Info("inside turn")
		return nil
	}), 0)
	d.logger = slog.New(slog.NewTextHandler(&buf, nil))

	d.Dispatch(context.Background(), "d-42", dialog.Request{ActionID: "STOP"})
	d.Wait()

	out := buf.String()
	if !strings.Contains(out, "msg=\"inside turn\" delivery_id=d-42 action_id=STOP") {
		t.Errorf("turn log line lacks delivery fields:\n%s", out)
	}
	if strings.Contains(out, "dialog turn failed") {
		t.Errorf("turn failed:\n%s", out)
	}
}
