package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// SessionRepository keeps the current session user under KeySession.
type SessionRepository struct {
	store kvstore.Store
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(store kvstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Current returns the stored session user, or ErrNotFound when nobody is signed in.
func (r *SessionRepository) Current(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := kvstore.GetJSON(ctx, r.store, KeySession, &user); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &user, nil
}

// Save replaces the session user. The password hash is never stored here.
func (r *SessionRepository) Save(ctx context.Context, user models.User) error {
	if _, err := kvstore.PutJSON(ctx, r.store, KeySession, user.Public(), kvstore.AnyVersion); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the session user.
func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
