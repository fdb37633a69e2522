// Package apikey authenticates callers by static API keys from the
// configuration file.
package apikey

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/rhuss/crawlrouter/pkg/auth"
)

// Key maps one API key to the identity it authenticates.
type Key struct {
	Value    string
	Identity auth.Identity
}

// Authenticator looks keys up by their SHA-256 digest so the configured
// values are not kept in memory.
type Authenticator struct {
	keys map[[sha256.Size]byte]auth.Identity
}

// New indexes keys. Keys with an empty value are ignored.
func New(keys []Key) *Authenticator {
	a := &Authenticator{keys: make(map[[sha256.Size]byte]auth.Identity, len(keys))}
	for _, k := range keys {
		if k.Value == "" {
			continue
		}
		a.keys[sha256.Sum256([]byte(k.Value))] = k.Identity
	}
	return a
}

// Authenticate abstains when the request carries no credential or one
// that looks like a JWT, so a token authenticator later in the chain can
// claim it.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.Credential(r)
	if !ok || token == "" || strings.Count(token, ".") == 2 {
		return auth.Result{Decision: auth.Abstain}
	}

	id, found := a.keys[sha256.Sum256([]byte(token))]
	if !found {
		return auth.Denied(auth.ErrInvalidCredential)
	}
	out := id
	if out.Tier == "" {
		out.Tier = "default"
	}
	return auth.Allowed(&out)
}
