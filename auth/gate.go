package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-studentdb/student"
)

// Gate registers users and checks caller ids.
type Gate struct {
	store  UserStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewGate returns a gate over store.
func NewGate(store UserStore, logger zerolog.Logger) *Gate {
	return &Gate{
		store:  store,
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// Register stores a new user under a generated id.
func (g *Gate) Register(ctx context.Context, firstName, lastName string) (User, error) {
	user := User{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		CreatedAt: g.now().UTC(),
	}

	err := validation.ValidateStruct(&user,
		validation.Field(&user.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&user.LastName, validation.Required, validation.Length(1, 255)),
	)
	if err != nil {
		return User{}, student.Malformed(err)
	}

	if err := g.store.Save(ctx, user); err != nil {
		return User{}, fmt.Errorf("register user: %w", err)
	}
	g.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authorize returns the user with id, or ErrAccessDenied when the id is
// empty or unknown. Other store failures are returned as they are.
func (g *Gate) Authorize(ctx context.Context, id string) (User, error) {
	// ids are only ever issued as uuids; anything else cannot be registered
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return User{}, ErrAccessDenied
	}

	user, err := g.store.Find(ctx, parsed.String())
	if errors.Is(err, ErrUnknownUser) {
		return User{}, ErrAccessDenied
	}
	if err != nil {
		return User{}, fmt.Errorf("authorize: %w", err)
	}
	return user, nil
}

// Login checks that id is registered.
func (g *Gate) Login(ctx context.Context, id string) (User, error) {
	return g.Authorize(ctx, id)
}

// Logout checks that id is registered. Nothing is revoked.
func (g *Gate) Logout(ctx context.Context, id string) error {
	_, err := g.Authorize(ctx, id)
	return err
}
