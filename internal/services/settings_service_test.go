package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

type stubSettingsUsers struct {
	users   map[uint]models.User
	updates []map[string]any
}

func (stub *stubSettingsUsers) FindByID(_ context.Context, userID uint) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (stub *stubSettingsUsers) UpdateSettings(_ context.Context, userID uint, updates map[string]any) error {
	stub.updates = append(stub.updates, updates)
	user := stub.users[userID]
	for column, value := range updates {
		switch column {
		case "cycle_length":
			user.CycleLength = value.(int)
		case "period_length":
			user.PeriodLength = value.(int)
		case "time_zone":
			user.TimeZone = value.(string)
		case "remind_period":
			user.RemindPeriod = value.(bool)
		case "remind_ovulation":
			user.RemindOvulation = value.(bool)
		}
	}
	stub.users[userID] = user
	return nil
}

func newTestSettingsService() (*SettingsService, *stubSettingsUsers) {
	users := &stubSettingsUsers{users: map[uint]models.User{1: *baselineUser()}}
	service := NewSettingsService(users, nil)
	service.resolveZone = func(name string) (*time.Location, error) {
		if name == "Europe/Berlin" {
			return time.FixedZone("CET", 3600), nil
		}
		return nil, errors.New("unknown time zone")
	}
	return service, users
}

func TestValidateSettingsRanges(t *testing.T) {
	t.Parallel()

	service, _ := newTestSettingsService()
	cases := []struct {
		name    string
		update  SettingsUpdate
		wantErr error
	}{
		{name: "cycle too short", update: SettingsUpdate{CycleLength: 14, PeriodLength: 5}, wantErr: ErrSettingsCycleLengthOutOfRange},
		{name: "cycle too long", update: SettingsUpdate{CycleLength: 91, PeriodLength: 5}, wantErr: ErrSettingsCycleLengthOutOfRange},
		{name: "period zero", update: SettingsUpdate{CycleLength: 28, PeriodLength: 0}, wantErr: ErrSettingsPeriodLengthOutOfRange},
		{name: "period too long", update: SettingsUpdate{CycleLength: 28, PeriodLength: 15}, wantErr: ErrSettingsPeriodLengthOutOfRange},
		{name: "unknown zone", update: SettingsUpdate{CycleLength: 28, PeriodLength: 5, TimeZone: "Nowhere/Else"}, wantErr: ErrSettingsTimeZoneInvalid},
		{name: "bounds inclusive", update: SettingsUpdate{CycleLength: 15, PeriodLength: 14}},
		{name: "known zone", update: SettingsUpdate{CycleLength: 90, PeriodLength: 1, TimeZone: " Europe/Berlin "}},
	}

	for _, testCase := range cases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.ValidateSettings(testCase.update)
			if testCase.wantErr == nil && err != nil {
				t.Fatalf("expected valid settings, got %v", err)
			}
			if testCase.wantErr != nil && !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
		})
	}
}

func TestUpdateSettingsPersistsValidatedValues(t *testing.T) {
	t.Parallel()

	service, users := newTestSettingsService()
	updated, err := service.UpdateSettings(context.Background(), 1, SettingsUpdate{
		CycleLength:     31,
		PeriodLength:    6,
		TimeZone:        " Europe/Berlin ",
		RemindPeriod:    true,
		RemindOvulation: true,
	})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if updated.CycleLength != 31 || updated.PeriodLength != 6 || updated.TimeZone != "Europe/Berlin" {
		t.Fatalf("unexpected updated user %+v", updated)
	}
	if !updated.RemindPeriod || !updated.RemindOvulation {
		t.Fatalf("expected reminder flags to be enabled")
	}
	if len(users.updates) != 1 {
		t.Fatalf("expected one settings write, got %d", len(users.updates))
	}

	if _, err := service.UpdateSettings(context.Background(), 99, SettingsUpdate{CycleLength: 28, PeriodLength: 5}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestToggleReminder(t *testing.T) {
	t.Parallel()

	service, users := newTestSettingsService()
	ctx := context.Background()

	if err := service.ToggleReminder(ctx, 1, "Period", true); err != nil {
		t.Fatalf("ToggleReminder(period) returned error: %v", err)
	}
	if err := service.ToggleReminder(ctx, 1, "ovulation", true); err != nil {
		t.Fatalf("ToggleReminder(ovulation) returned error: %v", err)
	}
	if user := users.users[1]; !user.RemindPeriod || !user.RemindOvulation {
		t.Fatalf("expected both reminders enabled, got %+v", user)
	}

	if err := service.ToggleReminder(ctx, 1, "theme", true); !errors.Is(err, ErrUnknownReminderKind) {
		t.Fatalf("expected ErrUnknownReminderKind, got %v", err)
	}
	if err := service.ToggleReminder(ctx, 42, "period", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(users.updates) != 2 {
		t.Fatalf("expected rejected toggles not to write, got %d writes", len(users.updates))
	}
}
