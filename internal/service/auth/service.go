package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

var (
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the JWT payload carried by every authenticated request.
type Claims struct {
	Username string      `json:"username"`
	Name     string      `json:"name,omitempty"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// User rebuilds the account the token was issued for.
func (c Claims) User() models.User {
	return models.User{Username: c.Username, Name: c.Name, Role: c.Role}
}

// Service logs users in and signs their tokens.
type Service struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the auth service.
func NewService(users repository.UserStore, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks the password against the stored hash and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", models.User{}, ErrInvalidCredentials
	}

	user, err := s.users.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("login for unknown user", zap.String("username", username))
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login with wrong password", zap.String("username", user.Username))
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.Issue(user)
	if err != nil {
		return "", models.User{}, err
	}

	s.logger.Info("user logged in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	user.PasswordHash = ""
	return token, user, nil
}

// Issue signs an HS256 token for user.
func (s *Service) Issue(user models.User) (string, error) {
	now := s.now()
	claims := &Claims{
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims.
func (s *Service) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrInvalidToken)
	}
	if _, err := models.ParseRole(string(claims.Role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Register hashes the password and stores a new account.
func (s *Service) Register(ctx context.Context, user models.User, password string) (models.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	user.Name = strings.TrimSpace(user.Name)
	if user.Username == "" {
		return models.User{}, models.NewValidationError("username", user.Username, "is required")
	}
	role, err := models.ParseRole(string(user.Role))
	if err != nil {
		return models.User{}, models.NewValidationError("role", user.Role, "must be driver, manager or admin")
	}
	user.Role = role
	if len(password) < 6 {
		return models.User{}, models.NewValidationError("password", "***", "must be at least 6 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = hash

	if err := s.users.AddUser(ctx, user); err != nil {
		return models.User{}, err
	}

	s.logger.Info("user registered", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	user.PasswordHash = ""
	return user, nil
}

// HashPassword bcrypt-hashes plain with the default cost.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
