// Package bridge defines the host bridge capability the synchronization
// engine runs against: a readiness wait plus a request/result RPC, and typed
// helpers for the calls a record kind needs.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
)

// Request is one host bridge RPC.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Result is the discriminated RPC result: either an error descriptor or a
// data payload.
type Result struct {
	Data             json.RawMessage `json:"result,omitempty"`
	ErrorCode        string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

// Failed reports whether the result carries an error descriptor.
func (r *Result) Failed() bool {
	return r != nil && r.ErrorCode != ""
}

// Err returns the error descriptor as a *errors.RemoteError, or nil.
func (r *Result) Err(method string) error {
	if !r.Failed() {
		return nil
	}
	return errors.NewRemoteError(method, r.ErrorCode, r.ErrorDescription)
}

// IsEmpty reports whether the payload is missing or null.
func (r *Result) IsEmpty() bool {
	if r == nil {
		return true
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Decode unmarshals the payload into v, keeping numbers as json.Number.
func (r *Result) Decode(v any) error {
	if r.IsEmpty() {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.WrapParse("json", "result", err)
	}
	return nil
}

// OK builds a successful result from any JSON-encodable payload.
func OK(v any) (*Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data}, nil
}

// Fail builds a result carrying an error descriptor.
func Fail(code, description string) *Result {
	return &Result{ErrorCode: code, ErrorDescription: description}
}

// Caller performs host bridge RPCs. A non-nil error means the call itself
// failed; a remote error descriptor comes back inside the Result.
type Caller interface {
	Call(ctx context.Context, req Request) (*Result, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, req Request) (*Result, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Bridge is the full host capability: readiness plus RPC.
type Bridge interface {
	AwaitReady(ctx context.Context, timeout time.Duration) (gate.Outcome, error)
	Caller
}

type composite struct {
	*gate.Gate
	Caller
}

// New composes a gate and a caller into a Bridge.
func New(g *gate.Gate, c Caller) Bridge {
	return &composite{Gate: g, Caller: c}
}

// Invoke performs a call and folds a remote error descriptor into the
// returned error.
func Invoke(ctx context.Context, c Caller, method string, params map[string]any) (*Result, error) {
	res, err := c.Call(ctx, Request{Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	if err := res.Err(method); err != nil {
		return res, err
	}
	return res, nil
}
