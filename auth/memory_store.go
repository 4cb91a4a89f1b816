package auth

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryUserStore keeps users in process memory. Registrations are lost on
// restart.
type MemoryUserStore struct {
	users *xsync.MapOf[string, User]
}

var _ UserStore = (*MemoryUserStore)(nil)

// NewMemoryUserStore returns an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: xsync.NewMapOf[string, User]()}
}

func (s *MemoryUserStore) Save(ctx context.Context, user User) error {
	s.users.Store(user.ID, user)
	return nil
}

func (s *MemoryUserStore) Find(ctx context.Context, id string) (User, error) {
	user, ok := s.users.Load(id)
	if !ok {
		return User{}, ErrUnknownUser
	}
	return user, nil
}

// Len reports the number of registered users.
func (s *MemoryUserStore) Len() int {
	return s.users.Size()
}
