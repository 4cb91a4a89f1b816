package auth

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrUnknownUser is returned by a UserStore when no user has the id.
	ErrUnknownUser = errors.New("unknown user")

	// ErrAccessDenied is returned by the gate for missing or unknown ids.
	ErrAccessDenied = errors.New("access denied")
)

// User is a registered caller.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID        string    `bun:"id,pk" json:"user_id"`
	FirstName string    `bun:"first_name,notnull" json:"first_name"`
	LastName  string    `bun:"last_name,notnull" json:"last_name"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// UserStore keeps registered users. Find returns ErrUnknownUser on a miss.
type UserStore interface {
	Save(ctx context.Context, user User) error
	Find(ctx context.Context, id string) (User, error)
}
