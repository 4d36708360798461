package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"starlight/internal/storage"
)

const usersKey = "user_profile"

const starplaceClaim = "starplace_access"

var ErrStorageUnavailable = errors.New("storage unavailable, profile change not committed")

type Clock interface {
	Now() time.Time
}

type Service struct {
	mu    sync.Mutex
	store storage.Storage
	clock Clock

	dir *Directory
}

func NewService(store storage.Storage, clock Clock) (*Service, error) {
	s := &Service{store: store, clock: clock}
	if err := s.load(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load(ctx context.Context) error {
	now := s.clock.Now()
	dir := NewDirectory(now)
	reseed := false
	data, err := s.store.Read(ctx, usersKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Printf("snapshot %s missing, starting from defaults", usersKey)
		reseed = true
	case err != nil:
		return fmt.Errorf("read snapshot %s: %w", usersKey, err)
	case len(data) == 0:
		log.Printf("snapshot %s empty, starting from defaults", usersKey)
		reseed = true
	default:
		if err := json.Unmarshal(data, dir); err != nil {
			log.Printf("snapshot %s corrupt (%v), starting from defaults", usersKey, err)
			dir = NewDirectory(now)
			reseed = true
		} else {
			dir.EnsureFounder(now)
		}
	}
	if reseed {
		if err := s.persist(ctx, dir); err != nil {
			return err
		}
	}
	s.dir = dir
	return nil
}

func (s *Service) persist(ctx context.Context, dir *Directory) error {
	data, err := json.MarshalIndent(dir, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", usersKey, err)
	}
	if err := s.store.Write(ctx, usersKey, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, fn func(dir *Directory) error) error {
	staged := s.dir.Clone()
	if err := fn(staged); err != nil {
		return err
	}
	if err := s.persist(ctx, staged); err != nil {
		return err
	}
	s.dir = staged
	return nil
}

func (s *Service) Create(ctx context.Context, displayName, vibe, title string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var user User
	err := s.mutate(ctx, func(dir *Directory) error {
		var err error
		user, err = dir.Create(s.clock.Now(), displayName, vibe, title)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) Get(userID string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.FindByID(userID)
}

func (s *Service) List() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]User(nil), s.dir.Users...)
}

func (s *Service) IsAdmin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.dir.FindByID(userID)
	return ok && u.Role == RoleAdmin
}

func (s *Service) HasStarplaceAccess(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.HasClaim(userID, starplaceClaim)
}

func (s *Service) GrantStarplaceAccess(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(dir *Directory) error {
		return dir.GrantClaim(s.clock.Now(), userID, starplaceClaim)
	})
}

func (s *Service) UpdateStarplace(ctx context.Context, userID string, sp Starplace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(dir *Directory) error {
		return dir.UpdateStarplace(s.clock.Now(), userID, sp)
	})
}

func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := NewDirectory(s.clock.Now())
	if err := s.persist(ctx, fresh); err != nil {
		return err
	}
	s.dir = fresh
	return nil
}

func (s *Service) Snapshot() *Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Clone()
}
