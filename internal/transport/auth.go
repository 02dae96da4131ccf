package transport

import (
	"net/http"
)

// Authenticator applies credentials to outbound requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// BasicAuth sends a key/secret pair as HTTP basic credentials, the way
// WooCommerce-style REST APIs expect consumer keys.
type BasicAuth struct {
	Key    string
	Secret string
}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request) {
	if a.Key == "" && a.Secret == "" {
		return
	}
	req.SetBasicAuth(a.Key, a.Secret)
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// QueryAuth sends the key/secret pair as query parameters, for sources
// that are only reachable over plain HTTP and refuse basic auth.
type QueryAuth struct {
	KeyParam    string
	SecretParam string
	Key         string
	Secret      string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.KeyParam, a.Key)
	query.Set(a.SecretParam, a.Secret)
	req.URL.RawQuery = query.Encode()
}
