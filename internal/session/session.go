package session

import "context"

// Session is the per-user state of the challenge flow. It is
// overwritten wholesale on /start and mutated in place by the partake
// and photo handlers.
type Session struct {
	WeekNumber    int
	AwaitingPhoto bool
}

// Store holds sessions keyed by Telegram user ID. Implementations must
// be safe for concurrent use; the webhook endpoint may be invoked for
// several users at once.
type Store interface {
	// Get returns the session for userID. The second return value is
	// false when the user has no session yet.
	Get(ctx context.Context, userID int64) (Session, bool, error)

	// Set creates or overwrites the session for userID.
	Set(ctx context.Context, userID int64, s Session) error

	// Update applies fn to the existing session for userID. It is a
	// no-op when the user has no session.
	Update(ctx context.Context, userID int64, fn func(*Session)) error
}
