package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

const usersDataRange = "Users!A:E"

// UserStore reads accounts from the Users sheet:
// username | name | role | phone | passwordHash.
type UserStore struct {
	repo   Repository
	logger *zap.Logger
	mu     sync.Mutex
}

var _ repository.UserStore = (*UserStore)(nil)

// NewUserStore wires a user store over a raw sheet repository.
func NewUserStore(repo Repository, logger *zap.Logger) *UserStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserStore{repo: repo, logger: logger}
}

// FindUser returns the user whose username matches case-insensitively.
func (s *UserStore) FindUser(ctx context.Context, username string) (models.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return models.User{}, err
	}

	username = strings.TrimSpace(username)
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, repository.ErrUserNotFound)
}

// AddUser appends a user row; usernames are unique.
func (s *UserStore) AddUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.FindUser(ctx, user.Username); err == nil {
		return fmt.Errorf("user %q: %w", user.Username, repository.ErrUserExists)
	}

	values := []interface{}{user.Username, user.Name, string(user.Role), user.Phone, user.PasswordHash}
	if err := s.repo.WriteRow(ctx, usersDataRange, values); err != nil {
		return fmt.Errorf("save user %s: %w", user.Username, err)
	}
	return nil
}

// ListUsers returns every decodable user row.
func (s *UserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.repo.ReadRange(ctx, usersDataRange)
	if err != nil {
		return nil, fmt.Errorf("load users range: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		username := strings.TrimSpace(fmt.Sprint(row[0]))
		if username == "" || strings.EqualFold(username, "username") {
			continue
		}
		role, err := models.ParseRole(fmt.Sprint(row[2]))
		if err != nil {
			s.logger.Debug("skip user row with invalid role", zap.Int("row", i+1), zap.Error(err))
			continue
		}

		user := models.User{
			Username: username,
			Name:     strings.TrimSpace(fmt.Sprint(row[1])),
			Role:     role,
		}
		if len(row) > 3 {
			user.Phone = strings.TrimSpace(fmt.Sprint(row[3]))
		}
		if len(row) > 4 {
			user.PasswordHash = strings.TrimSpace(fmt.Sprint(row[4]))
		}
		users = append(users, user)
	}
	return users, nil
}
