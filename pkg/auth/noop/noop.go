// Package noop admits every request as the anonymous caller. It backs
// auth.type "none".
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/crawlrouter/pkg/auth"
)

type Authenticator struct{}

func (Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	id := auth.Anonymous
	return auth.Allowed(&id)
}
