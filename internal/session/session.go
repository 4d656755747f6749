// Package session models who is using the reader on this device and drives
// the transitions between guest and signed-in use.
package session

import "context"

type Kind int

const (
	Guest Kind = iota
	Authenticated
)

func (k Kind) String() string {
	if k == Authenticated {
		return "authenticated"
	}
	return "guest"
}

// Session is the explicit storage context of a request.
type Session struct {
	Kind   Kind
	UserID string
	Email  string
}

func NewGuest() Session {
	return Session{Kind: Guest}
}

func NewAuthenticated(userID, email string) Session {
	return Session{Kind: Authenticated, UserID: userID, Email: email}
}

func (s Session) IsGuest() bool {
	return s.Kind == Guest
}

// Key addresses the websocket clients that render this session.
func (s Session) Key() string {
	if s.IsGuest() {
		return "guest"
	}
	return s.UserID
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request session, Guest when none was attached.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok {
		return s
	}
	return NewGuest()
}
