package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
	"github.com/mamadbah2/farebook/internal/repository/repotest"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := repotest.NewUserStore(models.User{Username: "ram", Name: "Ram Thapa", Role: models.RoleDriver, PasswordHash: hash})
	return NewService(users, "test-secret", time.Hour, nil)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Login(ctx, " RAM ", "s3cret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Username != "ram" || user.PasswordHash != "" {
		t.Fatalf("unexpected user %+v", user)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Username != "ram" || claims.Role != models.RoleDriver || claims.User().Name != "Ram Thapa" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	for _, tc := range []struct{ user, pass string }{
		{"ram", "wrong"},
		{"nobody", "s3cret!"},
		{"", ""},
	} {
		if _, _, err := svc.Login(ctx, tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) = %v, want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	svc := newTestService(t)
	user := models.User{Username: "gita", Role: models.RoleAdmin}

	issuedAt := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := svc.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(time.Minute) }
	if _, err := svc.Parse(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	other := NewService(nil, "another-secret", time.Hour, nil)
	other.now = svc.now
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "gita", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to be rejected, got %v", err)
	}

	if _, err := svc.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage to be rejected, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.User{Username: "hari", Name: "Hari", Role: "Manager"}, "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != models.RoleManager || user.PasswordHash != "" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, _, err := svc.Login(ctx, "hari", "password1"); err != nil {
		t.Fatalf("login after register: %v", err)
	}

	if _, err := svc.Register(ctx, models.User{Username: "hari", Role: models.RoleDriver}, "password1"); !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	var vErr *models.ValidationError
	if _, err := svc.Register(ctx, models.User{Username: "x", Role: "boss"}, "password1"); !errors.As(err, &vErr) || vErr.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
	if _, err := svc.Register(ctx, models.User{Username: "x", Role: models.RoleDriver}, "123"); !errors.As(err, &vErr) || vErr.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}
