// Package models defines server-side data models persisted by the user store.
package models

import "time"

// User is a registered account. Everything except AccessHistory is fixed at
// creation; AccessHistory only grows and is kept in chronological order.
// Repositories leave AccessHistory empty on lookups and serve it through
// bounded reads instead.
type User struct {
	ID            string    `db:"id"`
	Username      string    `db:"username"`
	FullName      string    `db:"full_name"`
	Salt          string    `db:"salt"`
	PasswordHash  string    `db:"password_hash"`
	CreatedAt     time.Time `db:"created_at"`
	AccessHistory []time.Time
}

// Clone returns a copy that shares no mutable state with u.
func (u *User) Clone() *User {
	c := *u
	if u.AccessHistory != nil {
		c.AccessHistory = append([]time.Time(nil), u.AccessHistory...)
	}
	return &c
}

// LastAccesses returns up to n of the most recent access timestamps, oldest first.
func (u *User) LastAccesses(n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	h := u.AccessHistory
	if len(h) > n {
		h = h[len(h)-n:]
	}
	return append([]time.Time{}, h...)
}
