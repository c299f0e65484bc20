package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ErrNameRequired is returned when a blank display name is submitted.
var ErrNameRequired = errors.New("name is required")

// ProfileUpdate is the partial profile sent to the league API.
type ProfileUpdate struct {
	Name string `json:"name"`
}

// ProfileAPI is the slice of the league API the identity service needs.
type ProfileAPI interface {
	Me(ctx context.Context, token string) (Identity, error)
	UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (Identity, error)
}

// Service resolves, renames and caches the authenticated identity.
type Service struct {
	api    ProfileAPI
	store  Store
	logger *slog.Logger
}

// NewService creates a new identity service.
func NewService(api ProfileAPI, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{api: api, store: store, logger: logger}
}

// Current returns the cached identity for the token, fetching and caching it on a miss.
func (s *Service) Current(ctx context.Context, token string) (Identity, error) {
	key := CacheKey(token)
	cached, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("identity cache read failed", slog.Any("error", err))
	}
	if ok {
		return cached, nil
	}
	return s.Refresh(ctx, token)
}

// Refresh fetches the identity from the league API and overwrites the cache.
func (s *Service) Refresh(ctx context.Context, token string) (Identity, error) {
	fresh, err := s.api.Me(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	s.publish(ctx, token, fresh)
	return fresh, nil
}

// SaveName persists the display name, merges the response into the cached
// snapshot and publishes the result.
func (s *Service) SaveName(ctx context.Context, token, name string) (Identity, error) {
	typed := strings.TrimSpace(name)
	if typed == "" {
		return Identity{}, ErrNameRequired
	}

	server, err := s.api.UpdateProfile(ctx, token, ProfileUpdate{Name: typed})
	if err != nil {
		return Identity{}, err
	}

	cached, _, err := s.store.Get(ctx, CacheKey(token))
	if err != nil {
		s.logger.Warn("identity cache read failed", slog.Any("error", err))
	}
	merged := Merge(cached, server, typed)
	s.publish(ctx, token, merged)

	s.logger.Info("identity.name saved", slog.String("user_id", merged.ID))
	return merged, nil
}

// Forget drops the cached identity for the token.
func (s *Service) Forget(ctx context.Context, token string) error {
	return s.store.Delete(ctx, CacheKey(token))
}

func (s *Service) publish(ctx context.Context, token string, identity Identity) {
	if err := s.store.Set(ctx, CacheKey(token), identity); err != nil {
		s.logger.Warn("identity cache write failed", slog.String("user_id", identity.ID), slog.Any("error", err))
	}
}
