package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

type stubAuthUsers struct {
	byEmail map[string]models.User
	created []models.User
	findErr error
}

func (stub *stubAuthUsers) FindByNormalizedEmail(_ context.Context, email string) (models.User, error) {
	if stub.findErr != nil {
		return models.User{}, stub.findErr
	}
	user, ok := stub.byEmail[email]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (stub *stubAuthUsers) Create(_ context.Context, user *models.User) error {
	user.ID = uint(100 + len(stub.created))
	stub.created = append(stub.created, *user)
	stub.byEmail[user.Email] = *user
	return nil
}

type capturingSender struct {
	email string
	code  string
	err   error
}

func (sender *capturingSender) SendVerificationCode(_ context.Context, email string, code string) error {
	sender.email = email
	sender.code = code
	return sender.err
}

func newTestAuthService(t *testing.T) (*AuthService, *stubAuthUsers, *capturingSender, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(mustParseDay(t, "2026-05-01"))
	users := &stubAuthUsers{byEmail: map[string]models.User{}}
	sender := &capturingSender{}
	store := NewVerificationCodeStore(clock, nil)
	service := NewAuthService(users, store, sender, AuthConfig{CodeTTL: 10 * time.Minute, CodeLength: 6}, nil)
	return service, users, sender, clock
}

func TestRequestCodeThenVerifyRegistersUser(t *testing.T) {
	t.Parallel()

	service, users, sender, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := service.RequestCode(ctx, " New.User@Example.com "); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	if sender.email != "new.user@example.com" {
		t.Fatalf("expected normalized recipient, got %q", sender.email)
	}
	if len(sender.code) != 6 || strings.Trim(sender.code, "0123456789") != "" {
		t.Fatalf("expected 6-digit numeric code, got %q", sender.code)
	}

	user, created, err := service.VerifyCode(ctx, "NEW.USER@example.com", sender.code)
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if !created || user.ID == 0 || len(users.created) != 1 {
		t.Fatalf("expected a registered user, got %+v created=%v", user, created)
	}
	if user.CycleLength != models.DefaultCycleLength || user.PeriodLength != models.DefaultPeriodLength {
		t.Fatalf("expected default cycle settings, got %+v", user)
	}

	if _, _, err := service.VerifyCode(ctx, "new.user@example.com", sender.code); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("expected reused code to be rejected, got %v", err)
	}
}

func TestVerifyCodeReturnsExistingUser(t *testing.T) {
	t.Parallel()

	service, users, sender, _ := newTestAuthService(t)
	users.byEmail["known@example.com"] = models.User{ID: 7, Email: "known@example.com"}

	if err := service.RequestCode(context.Background(), "known@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	user, created, err := service.VerifyCode(context.Background(), "known@example.com", sender.code)
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if created || user.ID != 7 || len(users.created) != 0 {
		t.Fatalf("expected the existing user, got %+v created=%v", user, created)
	}
}

func TestVerifyCodeRejectsExpiredCode(t *testing.T) {
	t.Parallel()

	service, _, sender, clock := newTestAuthService(t)
	if err := service.RequestCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	clock.Advance(11 * time.Minute)

	if _, _, err := service.VerifyCode(context.Background(), "user@example.com", sender.code); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("expected expired code to be rejected, got %v", err)
	}
}

func TestRequestCodeFailures(t *testing.T) {
	t.Parallel()

	service, _, sender, _ := newTestAuthService(t)
	if err := service.RequestCode(context.Background(), "not an email"); !errors.Is(err, ErrAuthEmailInvalid) {
		t.Fatalf("expected ErrAuthEmailInvalid, got %v", err)
	}

	sender.err = errors.New("smtp down")
	if err := service.RequestCode(context.Background(), "user@example.com"); err == nil {
		t.Fatalf("expected delivery failure to surface")
	}
	sender.err = nil
	if _, _, err := service.VerifyCode(context.Background(), "user@example.com", sender.code); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("expected undelivered code to be invalidated, got %v", err)
	}
}

func TestVerifyCodeStorageErrorIsNotRegistration(t *testing.T) {
	t.Parallel()

	service, users, sender, _ := newTestAuthService(t)
	users.findErr = errors.New("database is locked")
	if err := service.RequestCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}

	_, created, err := service.VerifyCode(context.Background(), "user@example.com", sender.code)
	if err == nil || created || len(users.created) != 0 {
		t.Fatalf("expected storage error without registration, got created=%v err=%v", created, err)
	}
}
