package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
)

type stubReminderUsers struct {
	users []models.User
}

func (stub *stubReminderUsers) ListReminderRecipients(context.Context) ([]models.User, error) {
	return stub.users, nil
}

type sentReminder struct {
	userID  uint
	message string
}

type recordingReminderSender struct {
	sent []sentReminder
	err  error
}

func (sender *recordingReminderSender) SendReminder(_ context.Context, user models.User, message string) error {
	if sender.err != nil {
		return sender.err
	}
	sender.sent = append(sender.sent, sentReminder{userID: user.ID, message: message})
	return nil
}

func reminderUser(t *testing.T, id uint, periodStart string, remindPeriod bool, remindOvulation bool) models.User {
	t.Helper()

	user := userWithHistory(id, observedPeriod(t, periodStart, 4))
	user.RemindPeriod = remindPeriod
	user.RemindOvulation = remindOvulation
	return user
}

func newTestReminderService(t *testing.T, users ...models.User) (*ReminderService, *recordingReminderSender, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(mustParseDay(t, "2026-05-10").Add(8 * time.Hour))
	sender := &recordingReminderSender{}
	service := NewReminderService(&stubReminderUsers{users: users}, sender, nil, clock, nil)
	return service, sender, clock
}

func TestReminderRunOnceSendsWithinHorizon(t *testing.T) {
	t.Parallel()

	service, sender, _ := newTestReminderService(t,
		reminderUser(t, 1, "2026-04-15", true, true),
		reminderUser(t, 2, "2026-04-26", true, true),
		reminderUser(t, 3, "2026-04-15", false, false),
	)

	sent, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if sent != 2 || len(sender.sent) != 2 {
		t.Fatalf("expected 2 reminders, got %d (%+v)", sent, sender.sent)
	}
	if sender.sent[0].userID != 1 || !strings.Contains(sender.sent[0].message, "period starts in 3 day(s)") {
		t.Fatalf("unexpected period reminder %+v", sender.sent[0])
	}
	if sender.sent[1].userID != 2 || !strings.Contains(sender.sent[1].message, "ovulation is expected today") {
		t.Fatalf("unexpected ovulation reminder %+v", sender.sent[1])
	}
}

func TestReminderRunOnceDeduplicatesPerDay(t *testing.T) {
	t.Parallel()

	service, sender, clock := newTestReminderService(t, reminderUser(t, 1, "2026-04-15", true, false))

	for run := 0; run < 2; run++ {
		if _, err := service.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d returned error: %v", run, err)
		}
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reminder per day, got %d", len(sender.sent))
	}

	clock.Advance(24 * time.Hour)
	if _, err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("next-day run returned error: %v", err)
	}
	if len(sender.sent) != 2 || !strings.Contains(sender.sent[1].message, "in 2 day(s)") {
		t.Fatalf("expected a fresh reminder on the next day, got %+v", sender.sent)
	}
}

func TestReminderRunOnceRetriesFailedDelivery(t *testing.T) {
	t.Parallel()

	service, sender, _ := newTestReminderService(t, reminderUser(t, 1, "2026-04-15", true, false))
	sender.err = errors.New("telegram unavailable")

	sent, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected failed delivery not to count, got %d", sent)
	}

	sender.err = nil
	sent, err = service.RunOnce(context.Background())
	if err != nil || sent != 1 {
		t.Fatalf("expected retry on the same day, sent=%d err=%v", sent, err)
	}
}
