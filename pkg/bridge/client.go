package bridge

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

// WorkflowStart is the workflow trigger payload.
type WorkflowStart struct {
	TemplateID string            `json:"TEMPLATE_ID"`
	DocumentID [3]string         `json:"DOCUMENT_ID"`
	Parameters map[string]string `json:"PARAMETERS"`
}

// NewWorkflowStart builds the trigger payload for a record of kind.
func NewWorkflowStart(kind *records.Kind, id records.Identity) WorkflowStart {
	params := make(map[string]string, len(kind.Workflow.Parameters))
	for k, v := range kind.Workflow.Parameters {
		params[k] = v
	}
	return WorkflowStart{
		TemplateID: kind.Workflow.TemplateRef,
		DocumentID: kind.DocumentID(id),
		Parameters: params,
	}
}

// Params returns the payload as RPC params.
func (w WorkflowStart) Params() map[string]any {
	return map[string]any{
		"TEMPLATE_ID": w.TemplateID,
		"DOCUMENT_ID": w.DocumentID,
		"PARAMETERS":  w.Parameters,
	}
}

// Client issues the typed calls of one record kind over a Caller.
type Client struct {
	caller Caller
	kind   *records.Kind
	logger *zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(logger *zerolog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for kind.
func NewClient(caller Caller, kind *records.Kind, opts ...ClientOption) *Client {
	c := &Client{caller: caller, kind: kind, logger: logging.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind returns the kind the client serves.
func (c *Client) Kind() *records.Kind {
	return c.kind
}

// PlacementOptions returns the options the host attached to the current
// embedding. Hosts deliver them either as an object or as a JSON string,
// optionally nested under an "options" key.
func (c *Client) PlacementOptions(ctx context.Context) (map[string]any, error) {
	method := c.kind.Methods.Placement
	if method == "" {
		return nil, nil
	}
	res, err := Invoke(ctx, c.caller, method, nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	if nested, ok := payload["options"]; ok {
		return decodeOptions(nested)
	}
	return payload, nil
}

func decodeOptions(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var out map[string]any
		if err := dec.Decode(&out); err != nil {
			return nil, errors.WrapParse("json", "placement options", err)
		}
		return out, nil
	default:
		return nil, nil
	}
}

// GetRecord reads the full record. A nil map with no error means the host
// returned an empty payload.
func (c *Client) GetRecord(ctx context.Context, id records.Identity) (map[string]any, error) {
	res, err := Invoke(ctx, c.caller, c.kind.Methods.Get, map[string]any{"id": id.String()})
	if err != nil {
		return nil, err
	}
	if res.IsEmpty() {
		return nil, nil
	}
	var payload map[string]any
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

type remoteField struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	FormLabel  string `json:"formLabel"`
	IsRequired bool   `json:"isRequired"`
	IsReadOnly bool   `json:"isReadOnly"`
	Items      []struct {
		ID    json.Number `json:"ID"`
		Value string      `json:"VALUE"`
	} `json:"items"`
}

// GetFields reads field metadata for the kind, sorted by code.
func (c *Client) GetFields(ctx context.Context) ([]records.FieldMeta, error) {
	if c.kind.Methods.Fields == "" {
		return nil, nil
	}
	res, err := Invoke(ctx, c.caller, c.kind.Methods.Fields, nil)
	if err != nil {
		return nil, err
	}
	var payload map[string]remoteField
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}

	out := make([]records.FieldMeta, 0, len(payload))
	for code, f := range payload {
		label := f.FormLabel
		if label == "" {
			label = f.Title
		}
		meta := records.FieldMeta{
			Code:     code,
			Label:    label,
			Type:     f.Type,
			Required: f.IsRequired,
			ReadOnly: f.IsReadOnly,
		}
		for _, item := range f.Items {
			meta.Options = append(meta.Options, records.FieldOption{ID: item.ID.String(), Value: item.Value})
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// UpdateFields persists fields, keyed by remote field code, in one call.
func (c *Client) UpdateFields(ctx context.Context, id records.Identity, fields map[string]string) error {
	_, err := Invoke(ctx, c.caller, c.kind.Methods.Update, map[string]any{
		"id":     id.String(),
		"fields": fields,
	})
	return err
}

// StartWorkflow triggers the kind's workflow for a record and returns the
// invocation id reported by the host, or "" when it reports none. An
// undecodable payload still counts as a started workflow.
func (c *Client) StartWorkflow(ctx context.Context, id records.Identity) (string, error) {
	start := NewWorkflowStart(c.kind, id)
	res, err := Invoke(ctx, c.caller, c.kind.Methods.Workflow, start.Params())
	if err != nil {
		return "", err
	}
	var invocation any
	if err := res.Decode(&invocation); err != nil {
		c.logger.Warn().
			Err(err).
			Str("method", c.kind.Methods.Workflow).
			Str("identity", id.String()).
			Msg("Workflow started with an unreadable invocation id")
		return "", nil
	}
	if s, ok := records.NormalizeScalar(invocation); ok {
		return s, nil
	}
	return "", nil
}
