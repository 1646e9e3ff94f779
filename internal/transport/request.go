package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
)

// maxErrorBody bounds how much of a non-JSON error body ends up in an error.
const maxErrorBody = 512

// Endpoint returns the URL a method is posted to.
func Endpoint(base, method string) string {
	return strings.TrimRight(base, "/") + "/" + method + ".json"
}

func newRequest(ctx context.Context, url string, params map[string]any) (*http.Request, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WrapParse("json", "request params", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// DecodeResponse decodes a response envelope into a bridge result.
// Error envelopes are returned as results even on non-2xx statuses, so
// the caller sees the remote error code. Bodies that are not an
// envelope become a RemoteError carrying the HTTP status.
func DecodeResponse(method string, resp *http.Response) (*bridge.Result, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var result bridge.Result
	if jsonErr := json.Unmarshal(body, &result); jsonErr == nil {
		if result.Failed() || ok {
			return &result, nil
		}
	} else if ok {
		return nil, errors.WrapParse("json", method+" response", jsonErr)
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return nil, errors.NewRemoteError(method, "HTTP_"+strconv.Itoa(resp.StatusCode), text)
}

func isRemote(err error) bool {
	var remote *errors.RemoteError
	return errors.As(err, &remote)
}
