package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps Authenticate's cost roughly constant when the email is
// unknown, so response timing does not reveal which accounts exist.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("caredash-dummy-password"), bcrypt.DefaultCost)
	return h
}()

type Service struct {
	repo            Repository
	adminSecretCode string
}

// NewService creates the credential service. adminSecretCode gates admin
// registration; when empty, admin self-registration is disabled entirely.
func NewService(repo Repository, adminSecretCode string) *Service {
	return &Service{repo: repo, adminSecretCode: adminSecretCode}
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	AdminCode string `json:"admin_code"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Username == "" {
		return nil, &ValidationError{Field: "username", Reason: "is required"}
	}
	if len(in.Username) > maxUsernameLen {
		return nil, &ValidationError{Field: "username", Reason: fmt.Sprintf("must be at most %d characters", maxUsernameLen)}
	}
	if in.Email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if len(in.Email) > maxEmailLen {
		return nil, &ValidationError{Field: "email", Reason: fmt.Sprintf("must be at most %d characters", maxEmailLen)}
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	role := in.Role
	if role == "" {
		role = RoleUser
	}
	switch role {
	case RoleUser:
	case RoleAdmin:
		if s.adminSecretCode == "" || in.AdminCode != s.adminSecretCode {
			return nil, ErrInvalidAdminCode
		}
	default:
		return nil, &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown value %q", role)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair. Every failure path returns
// ErrInvalidCredentials and runs one bcrypt compare, so the caller cannot
// tell from the error or the timing which check failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password)) //nolint:errcheck // timing defense only
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
