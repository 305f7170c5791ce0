package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/services"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type stubAuthFlow struct {
	requested  []string
	requestErr error
	user       models.User
	created    bool
	verifyErr  error
	verifies   int
}

func (stub *stubAuthFlow) RequestCode(_ context.Context, email string) error {
	stub.requested = append(stub.requested, email)
	return stub.requestErr
}

func (stub *stubAuthFlow) VerifyCode(context.Context, string, string) (models.User, bool, error) {
	stub.verifies++
	if stub.verifyErr != nil {
		return models.User{}, false, stub.verifyErr
	}
	return stub.user, stub.created, nil
}

type stubAnalytics struct {
	result     services.CycleAnalytics
	err        error
	lastUserID uint
	lastCycles int
}

func (stub *stubAnalytics) FullAnalytics(_ context.Context, userID uint, cycles int) (services.CycleAnalytics, error) {
	stub.lastUserID = userID
	stub.lastCycles = cycles
	return stub.result, stub.err
}

type stubForecasts struct {
	result    services.Forecast
	err       error
	lastRange services.ForecastRange
}

func (stub *stubForecasts) Forecast(_ context.Context, _ uint, window services.ForecastRange) (services.Forecast, error) {
	stub.lastRange = window
	return stub.result, stub.err
}

type stubPeriods struct {
	active    *models.Period
	recent    []models.Period
	lastCount int
	lastStart *time.Time
	endErr    error
}

func (stub *stubPeriods) StartPeriod(_ context.Context, userID uint, start *time.Time) (models.Period, bool, error) {
	stub.lastStart = start
	if stub.active != nil {
		return *stub.active, false, nil
	}
	period := models.Period{ID: 1, UserID: userID, StartDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), IsActive: true}
	if start != nil {
		period.StartDate = *start
	}
	stub.active = &period
	return period, true, nil
}

func (stub *stubPeriods) EndPeriod(_ context.Context, _ uint, end *time.Time) (models.Period, error) {
	if stub.endErr != nil {
		return models.Period{}, stub.endErr
	}
	if stub.active == nil {
		return models.Period{}, services.ErrNoActivePeriod
	}
	closed := *stub.active
	closed.IsActive = false
	closed.EndDate = end
	stub.active = nil
	return closed, nil
}

func (stub *stubPeriods) RecentPeriods(_ context.Context, _ uint, count int) ([]models.Period, error) {
	stub.lastCount = count
	return stub.recent, nil
}

type stubSettings struct {
	lastUpdate services.SettingsUpdate
	err        error
	toggled    map[string]bool
}

func (stub *stubSettings) UpdateSettings(_ context.Context, userID uint, update services.SettingsUpdate) (models.User, error) {
	stub.lastUpdate = update
	if stub.err != nil {
		return models.User{}, stub.err
	}
	return models.User{
		ID:              userID,
		CycleLength:     update.CycleLength,
		PeriodLength:    update.PeriodLength,
		TimeZone:        update.TimeZone,
		RemindPeriod:    update.RemindPeriod,
		RemindOvulation: update.RemindOvulation,
	}, nil
}

func (stub *stubSettings) ToggleReminder(_ context.Context, _ uint, kind string, enabled bool) error {
	if kind != string(services.ReminderPeriod) && kind != string(services.ReminderOvulation) {
		return services.ErrUnknownReminderKind
	}
	if stub.toggled == nil {
		stub.toggled = map[string]bool{}
	}
	stub.toggled[kind] = enabled
	return nil
}

type testAPI struct {
	app       *fiber.App
	handler   *Handler
	clock     *clockwork.FakeClock
	auth      *stubAuthFlow
	analytics *stubAnalytics
	forecasts *stubForecasts
	periods   *stubPeriods
	settings  *stubSettings
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	env := &testAPI{
		clock:     clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)),
		auth:      &stubAuthFlow{user: models.User{ID: 7}},
		analytics: &stubAnalytics{},
		forecasts: &stubForecasts{},
		periods:   &stubPeriods{},
		settings:  &stubSettings{},
	}
	env.handler = NewHandler(Dependencies{
		Auth:       env.auth,
		Analytics:  env.analytics,
		Forecasts:  env.forecasts,
		Periods:    env.periods,
		Settings:   env.settings,
		SigningKey: testSigningKey,
		Clock:      env.clock,
	})
	env.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRoutes(env.app, env.handler)
	return env
}

func (env *testAPI) token(t *testing.T, userID uint) string {
	t.Helper()
	token, err := env.handler.buildToken(userID)
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return token
}

func (env *testAPI) do(t *testing.T, method string, path string, body string, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	return response
}

func decodeJSON(t *testing.T, response *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()
	payload := map[string]string{}
	decodeJSON(t, response, &payload)
	return payload["error"]
}
