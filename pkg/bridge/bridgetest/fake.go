// Package bridgetest provides a scriptable in-memory bridge.Bridge for tests.
// It needs no timers: readiness is scripted, every call is recorded, and a
// call can be held in flight until the test releases it.
package bridgetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
)

// Handler produces the response for one call.
type Handler func(req bridge.Request) (*bridge.Result, error)

// Hold keeps one call in flight until released.
type Hold struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

func newHold() *Hold {
	return &Hold{entered: make(chan struct{}), release: make(chan struct{})}
}

// Entered is closed once the held call has started.
func (h *Hold) Entered() <-chan struct{} {
	return h.entered
}

// Release lets the held call complete.
func (h *Hold) Release() {
	h.releaseOnce.Do(func() { close(h.release) })
}

func (h *Hold) wait(ctx context.Context) error {
	h.enterOnce.Do(func() { close(h.entered) })
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake is a scripted bridge. The zero value is not usable; call New.
type Fake struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	served     map[string]int
	holds      map[string][]*Hold
	calls      []bridge.Request
	outcome    gate.Outcome
	readyErr   error
	readyHold  *Hold
	readyCalls int
}

var _ bridge.Bridge = (*Fake)(nil)

// New returns a fake that reports ready and has no scripted calls.
func New() *Fake {
	return &Fake{
		handlers: make(map[string][]Handler),
		served:   make(map[string]int),
		holds:    make(map[string][]*Hold),
	}
}

// On queues handlers for method. Calls are answered by the queued handlers
// in order; once the queue is exhausted the last handler answers every
// further call. Handlers queued later extend the sequence.
func (f *Fake) On(method string, handlers ...Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = append(f.handlers[method], handlers...)
	return f
}

// Respond queues a successful result with payload v.
func (f *Fake) Respond(method string, v any) *Fake {
	res, err := bridge.OK(v)
	if err != nil {
		panic(fmt.Sprintf("bridgetest: cannot encode payload for %s: %v", method, err))
	}
	return f.On(method, func(bridge.Request) (*bridge.Result, error) { return res, nil })
}

// RespondError queues a result carrying an error descriptor.
func (f *Fake) RespondError(method, code, description string) *Fake {
	return f.On(method, func(bridge.Request) (*bridge.Result, error) {
		return bridge.Fail(code, description), nil
	})
}

// Fail queues a transport failure.
func (f *Fake) Fail(method string, err error) *Fake {
	return f.On(method, func(bridge.Request) (*bridge.Result, error) { return nil, err })
}

// Clear drops every handler queued for method.
func (f *Fake) Clear(method string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, method)
	delete(f.served, method)
	return f
}

// Hold makes the next unheld call to method wait until released.
func (f *Fake) Hold(method string) *Hold {
	h := newHold()
	f.mu.Lock()
	f.holds[method] = append(f.holds[method], h)
	f.mu.Unlock()
	return h
}

// SetReady scripts the AwaitReady answer.
func (f *Fake) SetReady(outcome gate.Outcome, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcome = outcome
	f.readyErr = err
	return f
}

// SetUnavailable scripts AwaitReady to fail as a timed out bridge.
func (f *Fake) SetUnavailable() *Fake {
	return f.SetReady(gate.OutcomeReady, &errors.BridgeUnavailableError{})
}

// HoldReady makes the next AwaitReady wait until released.
func (f *Fake) HoldReady() *Hold {
	h := newHold()
	f.mu.Lock()
	f.readyHold = h
	f.mu.Unlock()
	return h
}

// AwaitReady implements bridge.Bridge.
func (f *Fake) AwaitReady(ctx context.Context, timeout time.Duration) (gate.Outcome, error) {
	f.mu.Lock()
	f.readyCalls++
	h := f.readyHold
	f.readyHold = nil
	outcome, err := f.outcome, f.readyErr
	f.mu.Unlock()

	if h != nil {
		if werr := h.wait(ctx); werr != nil {
			return outcome, fmt.Errorf("%w: %w", errors.ErrCanceled, werr)
		}
	}
	var unavailable *errors.BridgeUnavailableError
	if errors.As(err, &unavailable) && unavailable.Timeout == 0 {
		err = &errors.BridgeUnavailableError{Timeout: timeout}
	}
	return outcome, err
}

// Call implements bridge.Caller.
func (f *Fake) Call(ctx context.Context, req bridge.Request) (*bridge.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var h *Hold
	if q := f.holds[req.Method]; len(q) > 0 {
		h = q[0]
		f.holds[req.Method] = q[1:]
	}
	var handler Handler
	if q := f.handlers[req.Method]; len(q) > 0 {
		i := f.served[req.Method]
		if i >= len(q) {
			i = len(q) - 1
		}
		handler = q[i]
		f.served[req.Method] = i + 1
	}
	f.mu.Unlock()

	if h != nil {
		if err := h.wait(ctx); err != nil {
			return nil, err
		}
	}
	if handler == nil {
		return nil, fmt.Errorf("bridgetest: no response scripted for %s", req.Method)
	}
	return handler(req)
}

// Calls returns the recorded requests, optionally filtered by method.
func (f *Fake) Calls(methods ...string) []bridge.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(methods) == 0 {
		return append([]bridge.Request(nil), f.calls...)
	}
	var out []bridge.Request
	for _, c := range f.calls {
		for _, m := range methods {
			if c.Method == m {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// CallCount returns how many calls were made to method.
func (f *Fake) CallCount(method string) int {
	return len(f.Calls(method))
}

// ReadyCalls returns how many times AwaitReady was called.
func (f *Fake) ReadyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyCalls
}

// Reset clears recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.readyCalls = 0
}
