package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Profile returns the owner's profile or core.ErrNotFound.
func (s *Store) Profile(ctx context.Context) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile != nil {
		return *s.profile, nil
	}
	p, err := s.gw.LoadProfile(ctx, s.owner)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Profile{}, err
		}
		return core.Profile{}, fmt.Errorf("load profile: %w: %w", core.ErrUnavailable, err)
	}
	s.profile = &p
	return p, nil
}

// UpsertProfile records a sign-in: non-empty fields replace stored ones,
// CreatedAt is kept and LastLoginAt is bumped. The save is synchronous.
func (s *Store) UpsertProfile(ctx context.Context, in core.Profile) (core.Profile, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	if err := s.check(in); err != nil {
		return core.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := core.Profile{}
	if s.profile != nil {
		current = *s.profile
	} else {
		p, err := s.gw.LoadProfile(ctx, s.owner)
		switch {
		case err == nil:
			current = p
		case !errors.Is(err, core.ErrNotFound):
			return core.Profile{}, fmt.Errorf("load profile: %w: %w", core.ErrUnavailable, err)
		}
	}

	now := s.now().UTC()
	p := current
	p.UserID = s.owner
	if in.Email != "" {
		p.Email = in.Email
	}
	if in.DisplayName != "" {
		p.DisplayName = in.DisplayName
	}
	if in.PhotoURL != "" {
		p.PhotoURL = in.PhotoURL
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.LastLoginAt = now

	if err := s.gw.SaveProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	s.profile = &p
	return p, nil
}
