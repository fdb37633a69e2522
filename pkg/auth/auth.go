package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// Decision is the vote of an Authenticator.
type Decision int

const (
	// Abstain means the authenticator does not recognize the credential.
	// The chain asks the next one.
	Abstain Decision = iota

	// Allow means the credential is valid.
	Allow

	// Deny means the credential was recognized and is invalid.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set on Allow
	Err      error     // set on Deny
}

// Allowed returns an Allow result for id.
func Allowed(id *Identity) Result { return Result{Decision: Allow, Identity: id} }

// Denied returns a Deny result for err.
func Denied(err error) Result { return Result{Decision: Deny, Err: err} }

// Identity is an authenticated gateway caller.
type Identity struct {
	// Subject names the caller. Never empty on an allowed request.
	Subject string

	// Tenant scopes the request log. Empty means the shared tenant.
	Tenant string

	// Tier selects the rate limit.
	Tier string

	// Backends lists the backend names the caller may select; "*" matches
	// any. Empty means no restriction.
	Backends []string
}

// Anonymous is the identity of requests when authentication is disabled.
var Anonymous = Identity{Subject: "anonymous", Tier: "default"}

// Allows reports whether the caller may use backend. A nil identity
// allows everything.
func (id *Identity) Allows(backend string) bool {
	if id == nil || len(id.Backends) == 0 {
		return true
	}
	return slices.Contains(id.Backends, backend) || slices.Contains(id.Backends, "*")
}

// Authenticator votes on the credential of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

// Authenticate calls f(ctx, r).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// Chain asks its authenticators in order. The first one that does not
// abstain decides. When all abstain, Fallback decides: Allow admits the
// request as Anonymous.
type Chain struct {
	Authenticators []Authenticator
	Fallback       Decision
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.Fallback == Allow {
		anon := Anonymous
		return Allowed(&anon)
	}
	return Denied(ErrMissingCredential)
}

// Credential returns the bearer token of r. Besides "Authorization:
// Bearer <token>" it accepts the X-API-Key header used by several scrape
// clients. ok is false when r carries neither.
func Credential(r *http.Request) (token string, ok bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest), true
		}
		return "", false
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k), true
	}
	return "", false
}
