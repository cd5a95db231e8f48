// Package sessions issues and validates session tokens.
//
// Two schemes implement Store: CacheStore keeps one opaque random token per
// user in a time-bounded cache, SignedStore hands out self-contained tokens
// signed with the server key and keeps no state at all. The scheme is chosen
// once at startup (see config.SessionScheme) and never switched per call.
package sessions

import "context"

// Store issues session tokens and checks them against a claimed username.
type Store interface {
	// Create issues a new token for username.
	Create(ctx context.Context, username string) (string, error)

	// Validate reports whether token is currently valid for username.
	// Every failure, including backend errors, is reported as false.
	Validate(ctx context.Context, username, token string) bool
}

var (
	_ Store = (*CacheStore)(nil)
	_ Store = (*SignedStore)(nil)
)
