package storeinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-studentdb/auth"
	"github.com/goliatone/go-studentdb/student"
)

// UserStore keeps gate users in the users table so registrations survive
// restarts.
type UserStore struct {
	db *DB
}

var _ auth.UserStore = (*UserStore)(nil)

// NewUserStore returns a persistent auth.UserStore.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Save(ctx context.Context, user auth.User) error {
	if _, err := s.db.NewInsert().Model(&user).Exec(ctx); err != nil {
		return student.NewStoreError("save user", err)
	}
	return nil
}

func (s *UserStore) Find(ctx context.Context, id string) (auth.User, error) {
	var user auth.User
	err := s.db.NewSelect().Model(&user).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUnknownUser
	}
	if err != nil {
		return auth.User{}, student.NewStoreError("find user", err)
	}
	return user, nil
}
