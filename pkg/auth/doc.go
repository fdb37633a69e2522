// Package auth authenticates gateway callers.
//
// A Chain of authenticators votes on every request: Allow with an
// Identity, Deny, or Abstain when the credential is not theirs. The
// identity restricts which backends the caller may select, names the
// tenant its request log entries belong to and picks its rate limit tier.
// Middleware applies the chain and the limiter in front of the API.
package auth
