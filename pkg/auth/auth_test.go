package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixed(res Result) Authenticator {
	return AuthenticatorFunc(func(context.Context, *http.Request) Result { return res })
}

func TestChain(t *testing.T) {
	alice := &Identity{Subject: "alice"}
	bob := &Identity{Subject: "bob"}
	denied := errors.New("denied")

	tests := []struct {
		name     string
		chain    Chain
		decision Decision
		subject  string
	}{
		{"empty chain denies", Chain{}, Deny, ""},
		{"empty chain with allow fallback", Chain{Fallback: Allow}, Allow, "anonymous"},
		{"first allow wins", Chain{Authenticators: []Authenticator{fixed(Allowed(alice)), fixed(Allowed(bob))}}, Allow, "alice"},
		{"first deny wins", Chain{Authenticators: []Authenticator{fixed(Denied(denied)), fixed(Allowed(bob))}}, Deny, ""},
		{"abstain falls through", Chain{Authenticators: []Authenticator{fixed(Result{}), fixed(Allowed(bob))}}, Allow, "bob"},
		{"all abstain uses fallback", Chain{Authenticators: []Authenticator{fixed(Result{})}, Fallback: Deny}, Deny, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.chain.Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
			if res.Decision != tt.decision {
				t.Fatalf("decision = %s, want %s", res.Decision, tt.decision)
			}
			if tt.subject != "" && (res.Identity == nil || res.Identity.Subject != tt.subject) {
				t.Errorf("identity = %+v, want subject %q", res.Identity, tt.subject)
			}
			if res.Decision == Deny && res.Err == nil {
				t.Error("deny without error")
			}
		})
	}
}

func TestChainFallbackDoesNotShareAnonymous(t *testing.T) {
	c := Chain{Fallback: Allow}
	res := c.Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
	res.Identity.Tenant = "mutated"
	if Anonymous.Tenant != "" {
		t.Error("fallback identity aliases Anonymous")
	}
}

func TestCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		token   string
		ok      bool
	}{
		{"none", nil, "", false},
		{"bearer", map[string]string{"Authorization": "Bearer abc"}, "abc", true},
		{"lowercase scheme", map[string]string{"Authorization": "bearer abc"}, "abc", true},
		{"basic is not a credential", map[string]string{"Authorization": "Basic dXNlcjpwdw=="}, "", false},
		{"x-api-key", map[string]string{"X-API-Key": "k1"}, "k1", true},
		{"authorization wins", map[string]string{"Authorization": "Bearer a", "X-API-Key": "b"}, "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			token, ok := Credential(r)
			if token != tt.token || ok != tt.ok {
				t.Errorf("Credential() = %q, %v; want %q, %v", token, ok, tt.token, tt.ok)
			}
		})
	}
}

func TestIdentityAllows(t *testing.T) {
	var nilID *Identity
	if !nilID.Allows("searxng") {
		t.Error("nil identity should allow every backend")
	}
	open := &Identity{Subject: "a"}
	if !open.Allows("searxng") {
		t.Error("identity without backend list should allow every backend")
	}
	limited := &Identity{Subject: "b", Backends: []string{"firecrawl"}}
	if limited.Allows("searxng") || !limited.Allows("firecrawl") {
		t.Error("backend list not enforced")
	}
	wildcard := &Identity{Subject: "c", Backends: []string{"*"}}
	if !wildcard.Allows("jina") {
		t.Error("wildcard should allow every backend")
	}
}

func TestIdentityContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("empty context returned an identity")
	}
	id := &Identity{Subject: "alice"}
	if got := FromContext(WithIdentity(context.Background(), id)); got != id {
		t.Errorf("FromContext = %v, want %v", got, id)
	}
}

func TestTokenBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, map[string]int{"gold": 4, "free": 0})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	std := &Identity{Subject: "alice", Tier: "default"}
	for i := range 2 {
		if err := l.Allow(ctx, std); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.Allow(ctx, std); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third request: err = %v, want ErrRateLimited", err)
	}

	// another subject has its own bucket
	if err := l.Allow(ctx, &Identity{Subject: "bob", Tier: "default"}); err != nil {
		t.Errorf("bob: %v", err)
	}

	// 2 rpm refills one token in 30s
	now = now.Add(30 * time.Second)
	if err := l.Allow(ctx, std); err != nil {
		t.Errorf("after refill: %v", err)
	}
	if err := l.Allow(ctx, std); err == nil {
		t.Error("bucket should be empty again")
	}

	gold := &Identity{Subject: "carol", Tier: "gold"}
	for i := range 4 {
		if err := l.Allow(ctx, gold); err != nil {
			t.Fatalf("gold request %d: %v", i, err)
		}
	}

	free := &Identity{Subject: "dave", Tier: "free"}
	for range 10 {
		if err := l.Allow(ctx, free); err != nil {
			t.Fatalf("unlimited tier rejected: %v", err)
		}
	}
}
