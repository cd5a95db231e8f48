package common

import "time"

// DefaultActivityEntries is how many access timestamps an activity query
// returns when the caller does not ask for a specific amount.
const DefaultActivityEntries = 5

// DefaultSessionCacheTTL is the write-time expiry of cache-backed session tokens.
const DefaultSessionCacheTTL = time.Hour
