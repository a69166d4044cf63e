package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bookmarket/internal/apperr"
	"bookmarket/internal/ids"
	"bookmarket/internal/models"
	"bookmarket/internal/repository"
	"bookmarket/internal/security"
)

var errInvalidCredentials = apperr.Authentication("invalid credentials")

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	TouchLogin(ctx context.Context, id string) error
	UpdateSellerProfile(ctx context.Context, id string, profile string) error
}

type AuthService struct {
	users          UserStore
	issuer         *security.SessionIssuer
	failureDelay   time.Duration
	hashPassword   func(string) ([]byte, error)
	verifyPassword func(string, []byte) (bool, error)
	log            zerolog.Logger

	decoyOnce sync.Once
	decoy     []byte
}

func NewAuthService(users UserStore, issuer *security.SessionIssuer, failureDelay time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:          users,
		issuer:         issuer,
		failureDelay:   failureDelay,
		hashPassword:   security.HashPassword,
		verifyPassword: security.VerifyPassword,
		log:            log,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is a freshly issued session for User.
type AuthResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	name := sanitize(input.Name)

	if err := validateEmail(email); err != nil {
		return AuthResult{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}
	if err := validateName(name); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		Role:         models.UserRoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, apperr.Validation("email already registered")
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login answers unknown emails and wrong passwords identically, after the
// configured delay.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, apperr.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Pay for a hash comparison so unknown emails take as long as
			// wrong passwords.
			_, _ = s.verifyPassword(input.Password, s.decoyHash())
			return AuthResult{}, s.rejectCredentials(ctx)
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.verifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if !ok {
		return AuthResult{}, s.rejectCredentials(ctx)
	}

	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record login time failed")
	}

	return s.issue(user)
}

// decoyHash is a hash of a random password made with the same parameters as
// real accounts.
func (s *AuthService) decoyHash() []byte {
	s.decoyOnce.Do(func() {
		hash, err := s.hashPassword(ids.New())
		if err != nil {
			s.log.Warn().Err(err).Msg("build decoy password hash failed")
			return
		}
		s.decoy = hash
	})
	return s.decoy
}

func (s *AuthService) rejectCredentials(ctx context.Context) error {
	if s.failureDelay > 0 {
		timer := time.NewTimer(s.failureDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errInvalidCredentials
}

// Me loads the account behind a verified session.
func (s *AuthService) Me(ctx context.Context, identity security.Identity) (models.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.Authentication("account no longer exists")
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateSellerProfile remembers the contact link used to prefill new listings.
func (s *AuthService) UpdateSellerProfile(ctx context.Context, identity security.Identity, profile string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return apperr.Validation("lastUsedSellerProfile is required")
	}

	if err := s.users.UpdateSellerProfile(ctx, identity.UserID, profile); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Authentication("account no longer exists")
		}
		return fmt.Errorf("update seller profile: %w", err)
	}
	return nil
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	token, err := s.issuer.Issue(security.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.DisplayName,
		Admin:  user.IsAdmin(),
	})
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}
