package services

import (
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
)

const (
	lutealPhaseDays         = 14
	ovulationWindowDays     = 1
	variationToleranceDays  = 5
	minimumVariationPeriods = 3
)

// CycleWindow is a forecast span. Start and End are UTC; DisplayStart is Start
// rendered in the user's time zone, or UTC when the zone is unset or unknown.
type CycleWindow struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DisplayStart time.Time `json:"display_start"`
}

type ZoneResolver func(name string) (*time.Location, error)

type CycleCalculator struct {
	clock       clockwork.Clock
	resolveZone ZoneResolver
}

func NewCycleCalculator(clock clockwork.Clock) *CycleCalculator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CycleCalculator{
		clock:       clock,
		resolveZone: time.LoadLocation,
	}
}

func (calculator *CycleCalculator) Now() time.Time {
	return calculator.clock.Now().UTC()
}

// AdjustedCycleLength is the midpoint of the learned bounds when both are set,
// otherwise the user's configured baseline.
func AdjustedCycleLength(user *models.User) int {
	if user == nil {
		return models.DefaultCycleLength
	}
	if user.MinCycleLength != nil && user.MaxCycleLength != nil {
		return (*user.MinCycleLength + *user.MaxCycleLength) / 2
	}
	return user.CycleLength
}

func AdjustedPeriodLength(user *models.User) int {
	if user == nil {
		return models.DefaultPeriodLength
	}
	if user.MinPeriodLength != nil && user.MaxPeriodLength != nil {
		return (*user.MinPeriodLength + *user.MaxPeriodLength) / 2
	}
	return user.PeriodLength
}

func (calculator *CycleCalculator) NextPeriod(user *models.User, baseDate *time.Time) CycleWindow {
	anchor := calculator.anchor(user, baseDate)
	start := anchor.AddDate(0, 0, AdjustedCycleLength(user))
	end := start.AddDate(0, 0, AdjustedPeriodLength(user))
	return calculator.window(user, start, end)
}

func (calculator *CycleCalculator) NextOvulation(user *models.User, baseDate *time.Time) CycleWindow {
	anchor := calculator.anchor(user, baseDate)
	start := anchor.AddDate(0, 0, AdjustedCycleLength(user)-lutealPhaseDays)
	end := start.AddDate(0, 0, ovulationWindowDays)
	return calculator.window(user, start, end)
}

// DayOfCycle returns the 1-based position of date within the cycle started by
// the latest observed period on or before date, or 1 without such a period.
func (calculator *CycleCalculator) DayOfCycle(user *models.User, date time.Time) int {
	var latest *models.Period
	for _, period := range user.ObservedPeriods() {
		if period.StartDate.After(date) {
			continue
		}
		if latest == nil || period.StartDate.After(latest.StartDate) {
			candidate := period
			latest = &candidate
		}
	}
	if latest == nil {
		return 1
	}

	cycleLength := AdjustedCycleLength(user)
	if cycleLength <= 0 {
		cycleLength = models.DefaultCycleLength
	}
	return wholeDaysBetween(latest.StartDate, date)%cycleLength + 1
}

// UpdateCycleVariations learns min/max cycle and period lengths from observed
// history. Persisting the user is left to the caller.
func (calculator *CycleCalculator) UpdateCycleVariations(user *models.User) {
	if user == nil {
		return
	}
	now := calculator.Now()
	defer func() {
		user.LastCycleVariationUpdate = &now
	}()

	observed := user.ObservedPeriods()
	if len(observed) < minimumVariationPeriods {
		return
	}
	sort.SliceStable(observed, func(i, j int) bool {
		return observed[i].StartDate.Before(observed[j].StartDate)
	})

	cycleLimit := user.CycleLength + variationToleranceDays
	cycleLengths := make([]int, 0, len(observed)-1)
	for i := 1; i < len(observed); i++ {
		gap := wholeDaysBetween(observed[i-1].StartDate, observed[i].StartDate)
		if gap > 0 && gap <= cycleLimit {
			cycleLengths = append(cycleLengths, gap)
		}
	}

	periodLimit := user.PeriodLength + variationToleranceDays
	periodLengths := make([]int, 0, len(observed))
	for _, period := range observed {
		if period.EndDate == nil {
			continue
		}
		duration := wholeDaysBetween(period.StartDate, *period.EndDate)
		if duration > 0 && duration <= periodLimit {
			periodLengths = append(periodLengths, duration)
		}
	}

	if low, high, ok := minMaxInts(cycleLengths); ok {
		user.MinCycleLength = &low
		user.MaxCycleLength = &high
	}
	if low, high, ok := minMaxInts(periodLengths); ok {
		user.MinPeriodLength = &low
		user.MaxPeriodLength = &high
	}
}

func (calculator *CycleCalculator) anchor(user *models.User, baseDate *time.Time) time.Time {
	if baseDate != nil {
		return baseDate.UTC()
	}
	if last, ok := LatestObservedPeriod(user); ok {
		return last.StartDate.UTC()
	}
	return calculator.Now()
}

func (calculator *CycleCalculator) window(user *models.User, start time.Time, end time.Time) CycleWindow {
	return CycleWindow{
		Start:        start,
		End:          end,
		DisplayStart: start.In(calculator.displayLocation(user)),
	}
}

func (calculator *CycleCalculator) displayLocation(user *models.User) *time.Location {
	if user == nil {
		return time.UTC
	}
	name := strings.TrimSpace(user.TimeZone)
	if name == "" {
		return time.UTC
	}
	location, err := calculator.resolveZone(name)
	if err != nil || location == nil {
		return time.UTC
	}
	return location
}

// LatestObservedPeriod returns the observed period with the latest start date.
func LatestObservedPeriod(user *models.User) (models.Period, bool) {
	found := false
	latest := models.Period{}
	for _, period := range user.ObservedPeriods() {
		if !found || period.StartDate.After(latest.StartDate) {
			latest = period
			found = true
		}
	}
	return latest, found
}

// wholeDaysBetween truncates toward zero, matching elapsed whole days.
func wholeDaysBetween(from time.Time, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func minMaxInts(values []int) (int, int, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	low, high := values[0], values[0]
	for _, value := range values[1:] {
		if value < low {
			low = value
		}
		if value > high {
			high = value
		}
	}
	return low, high, true
}
