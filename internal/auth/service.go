package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Service performs credential checks and token lifecycle.
type Service struct {
	repo   RepositoryPort
	tokens *TokenStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, shared.Actor, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.Actor{}, shared.ErrInvalidCredentials
		}
		return "", shared.Actor{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", shared.Actor{}, shared.ErrInvalidCredentials
	}
	actor := shared.Actor{ID: user.ID, Name: user.Name, Email: user.Email}
	token, err := s.tokens.Issue(ctx, actor)
	if err != nil {
		return "", shared.Actor{}, err
	}
	return token, actor, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}
