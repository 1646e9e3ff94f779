package transport

import (
	"net/http"
	"strings"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication. Webhook URLs that embed their
// secret in the path use it.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// QueryAuth passes the token as a query parameter, the way portal
// OAuth tokens travel as "auth".
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, token)
	req.URL.RawQuery = query.Encode()
}

// AuthFor returns the authenticator for a scheme name. Unknown or empty
// schemes mean bearer when a token is present.
//
// Recognized schemes: "none", "bearer", "query" (param "auth"), and
// "header:<Name>".
func AuthFor(scheme string) Authenticator {
	scheme = strings.TrimSpace(scheme)
	switch {
	case scheme == "none":
		return &NoAuth{}
	case scheme == "query":
		return &QueryAuth{Param: "auth"}
	case strings.HasPrefix(scheme, "header:"):
		return &HeaderAuth{Header: strings.TrimPrefix(scheme, "header:")}
	default:
		return &BearerAuth{}
	}
}
