// Package jwt authenticates callers by bearer JWTs signed with a key from
// a JWKS endpoint. RSA and ECDSA signatures are accepted.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/crawlrouter/pkg/auth"
)

var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

type Config struct {
	Issuer   string // checked when set
	Audience string // checked when set
	JWKSURL  string

	// Claim names. Defaults: sub, tenant_id, tier, backends.
	UserClaim     string
	TenantClaim   string
	TierClaim     string
	BackendsClaim string

	// CacheTTL bounds the age of the cached key set. Default 1h.
	CacheTTL time.Duration

	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&c.UserClaim, "sub")
	def(&c.TenantClaim, "tenant_id")
	def(&c.TierClaim, "tier")
	def(&c.BackendsClaim, "backends")
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

type Authenticator struct {
	cfg    Config
	keys   *KeySet
	parser *jwtlib.Parser
}

func New(cfg Config) *Authenticator {
	cfg = cfg.withDefaults()
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods(validMethods), jwtlib.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}
	return &Authenticator{
		cfg:    cfg,
		keys:   NewKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL),
		parser: jwtlib.NewParser(opts...),
	}
}

// Authenticate abstains unless the credential has the three segments of
// a JWT, so opaque API keys fall through to other authenticators.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.Credential(r)
	if !ok || strings.Count(raw, ".") != 2 {
		return auth.Result{Decision: auth.Abstain}
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return a.keys.Key(ctx, kid)
	})
	if err != nil {
		slog.Debug("jwt rejected", "error", err)
		return auth.Denied(fmt.Errorf("%w: %w", auth.ErrInvalidCredential, err))
	}

	subject := stringClaim(claims, a.cfg.UserClaim)
	if subject == "" {
		return auth.Denied(fmt.Errorf("%w: no %s claim", auth.ErrInvalidCredential, a.cfg.UserClaim))
	}
	id := &auth.Identity{
		Subject:  subject,
		Tenant:   stringClaim(claims, a.cfg.TenantClaim),
		Tier:     stringClaim(claims, a.cfg.TierClaim),
		Backends: listClaim(claims, a.cfg.BackendsClaim),
	}
	if id.Tier == "" {
		id.Tier = "default"
	}
	return auth.Allowed(id)
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// listClaim accepts a JSON array of strings or a space separated string.
func listClaim(claims jwtlib.MapClaims, name string) []string {
	switch v := claims[name].(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
