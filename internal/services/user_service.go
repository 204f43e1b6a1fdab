package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sitekit/internal/config"
	"sitekit/pkg/contracts/domain"
)

// UserService is the in-memory user directory, seeded from
// configuration at startup. Password hashes are bcrypt.
type UserService struct {
	logger *slog.Logger

	mu         sync.RWMutex
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

// NewUserService seeds the directory from config. A user with an
// unhashable password fails startup rather than silently becoming
// unusable.
func NewUserService(seed []config.UserConfig, logger *slog.Logger) (*UserService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &UserService{
		logger:     logger.With(slog.String("service", "users")),
		byID:       make(map[string]*domain.User, len(seed)),
		byUsername: make(map[string]*domain.User, len(seed)),
	}

	for _, uc := range seed {
		if uc.Username == "" || uc.Password == "" {
			return nil, fmt.Errorf("seed user %q: username and password are required", uc.Username)
		}
		if _, exists := s.byUsername[uc.Username]; exists {
			return nil, fmt.Errorf("seed user %q: duplicate username", uc.Username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(uc.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", uc.Username, err)
		}
		user := &domain.User{
			ID:           uuid.New().String(),
			Username:     uc.Username,
			Name:         uc.Name,
			Admin:        uc.Admin,
			PasswordHash: hash,
		}
		s.byID[user.ID] = user
		s.byUsername[user.Username] = user
	}

	s.logger.Info("user directory seeded", slog.Int("users", len(seed)))
	return s, nil
}

// Authenticate checks credentials and records the login time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byUsername[username]
	if !ok {
		// Burn a comparison anyway so missing and wrong-password
		// lookups take comparable time.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return domain.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return domain.User{}, ErrBadCredentials
	}

	user.LastLogin = time.Now()
	s.logger.InfoContext(ctx, "user authenticated", slog.String("username", username))
	return *user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", id, ErrUserNotFound)
	}
	return *user, nil
}

// GetByUsername returns a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byUsername[username]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", username, ErrUserNotFound)
	}
	return *user, nil
}

// Recent returns up to n users that have logged in, most recent
// first. The toolbar's user panel lists these for impersonation.
func (s *UserService) Recent(ctx context.Context, n int) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.User
	for _, user := range s.byID {
		if !user.LastLogin.IsZero() {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastLogin.After(out[j].LastLogin) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Count returns the directory size.
func (s *UserService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
