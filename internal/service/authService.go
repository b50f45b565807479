package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	repository "github.com/ds124wfegd/eventbook/internal/database/postgres"
	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/pkg/auth"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type authService struct {
	userRepo    repository.UserRepository
	tokens      *auth.TokenManager
	adminEmails map[string]struct{}
	bcryptCost  int
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, adminEmails []string, bcryptCost int) AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = struct{}{}
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		adminEmails: admins,
		bcryptCost:  bcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	var problems []string
	if name == "" {
		problems = append(problems, "Please add a name")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		problems = append(problems, "Please add a valid email")
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(problems) > 0 {
		return nil, entity.NewValidationError(problems...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleUser,
	}
	if _, ok := s.adminEmails[email]; ok {
		user.Role = entity.RoleAdmin
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, entity.NewValidationError("Please provide an email and password")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, entity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, entity.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *entity.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate re-reads the user so role changes and deletions apply immediately.
func (s *authService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, entity.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, entity.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
