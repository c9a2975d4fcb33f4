package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qr-attendance-api/internal/domain"
	"github.com/qr-attendance-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	Bearer string
	User   *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
}

type userStore interface {
	GetByUniversityID(ctx context.Context, universityID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type jwtSigner interface {
	Sign(userID, universityID, role string) (string, error)
}

type service struct {
	users userStore
	jwt   jwtSigner
}

func NewService(users userStore, jwt jwtSigner) Service {
	return &service{users: users, jwt: jwt}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if _, err := s.users.GetByUniversityID(ctx, req.UniversityID); err == nil {
		return nil, fmt.Errorf("university id already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		UniversityID: req.UniversityID,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByUniversityID(ctx, req.UniversityID)
	if err != nil {
		// Indistinguishable from a bad password on purpose.
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.jwt.Sign(u.UserID, u.UniversityID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}
