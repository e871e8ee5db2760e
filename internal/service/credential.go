package service

import (
	"context"
	"errors"
	"fmt"

	"choreo-backend/internal/auth"
	"choreo-backend/internal/model"
	"choreo-backend/internal/repository"
)

// CredentialService registration and password checks
type CredentialService struct {
	repo   repository.CredentialRepository
	hasher *auth.PasswordHasher
}

// NewCredentialService creates a CredentialService
func NewCredentialService(repo repository.CredentialRepository, hasher *auth.PasswordHasher) *CredentialService {
	return &CredentialService{repo: repo, hasher: hasher}
}

// Register stores a new user. Returns repository.ErrUsernameTaken if the name exists.
func (s *CredentialService) Register(ctx context.Context, username, password string) error {
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return repository.ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.Create(ctx, &model.User{Username: username, PasswordHash: hash}); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Verify reports whether the password matches. Unknown users are a plain false.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (bool, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return ok, nil
}
