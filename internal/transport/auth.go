package transport

import "net/http"

// Authenticator applies authentication to outgoing requests.
type Authenticator interface {
	// Apply adds authentication to the request.
	Apply(req *http.Request)
}

// TokenAuth authenticates with a GitHub-style token header.
type TokenAuth struct {
	Token string
}

// Apply implements the Authenticator interface.
func (a *TokenAuth) Apply(req *http.Request) {
	if a.Token != "" {
		req.Header.Set("Authorization", "token "+a.Token)
	}
}

// NoAuth performs no authentication, used for public APIs.
type NoAuth struct{}

// Apply implements the Authenticator interface.
func (a *NoAuth) Apply(_ *http.Request) {}
