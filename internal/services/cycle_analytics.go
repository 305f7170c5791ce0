package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultAnalyticsCycles = 6

	maxPlausibleCycleGapDays       = 100
	maxPlausiblePeriodDurationDays = 20
)

var ErrUserNotFound = errors.New("user not found")

type Regularity string

const (
	RegularityVeryRegular       Regularity = "very regular"
	RegularityRegular           Regularity = "regular"
	RegularityModeratelyRegular Regularity = "moderately regular"
	RegularityIrregular         Regularity = "irregular"
)

type CycleDurationStats struct {
	AverageDays    float64 `json:"average_days"`
	MinDays        int     `json:"min_days"`
	MaxDays        int     `json:"max_days"`
	CyclesAnalyzed int     `json:"cycles_analyzed"`
}

type PeriodDurationStats struct {
	AverageDays     float64 `json:"average_days"`
	MinDays         int     `json:"min_days"`
	MaxDays         int     `json:"max_days"`
	PeriodsAnalyzed int     `json:"periods_analyzed"`
}

type RegularityAnalysis struct {
	Regularity   Regularity `json:"regularity"`
	Variation    int        `json:"variation"`
	AverageCycle float64    `json:"average_cycle"`
}

// CycleAnalytics is the composite view. A nil section means there was not
// enough history for that analysis.
type CycleAnalytics struct {
	CycleDuration  *CycleDurationStats  `json:"cycle_duration"`
	PeriodDuration *PeriodDurationStats `json:"period_duration"`
	Regularity     *RegularityAnalysis  `json:"regularity"`
	NextPeriod     CycleWindow          `json:"next_period"`
	NextOvulation  CycleWindow          `json:"next_ovulation"`
	RecentPeriods  []models.Period      `json:"recent_periods"`
}

// AverageCycleDuration measures start-to-start gaps between consecutive ended
// periods. Gaps outside (0, 100) days are treated as noise.
//
// A gap runs from one period start to the next, not from the previous period's
// end. Three periods 28 days apart report 28 over 2 cycles whatever their durations.
func AverageCycleDuration(periods []models.Period) (CycleDurationStats, bool) {
	ended := endedMostRecentFirst(periods)
	if len(ended) < 2 {
		return CycleDurationStats{}, false
	}

	gaps := make([]int, 0, len(ended)-1)
	for i := 0; i < len(ended)-1; i++ {
		gap := wholeDaysBetween(ended[i+1].StartDate, ended[i].StartDate)
		if gap > 0 && gap < maxPlausibleCycleGapDays {
			gaps = append(gaps, gap)
		}
	}

	low, high, ok := minMaxInts(gaps)
	if !ok {
		return CycleDurationStats{}, false
	}
	return CycleDurationStats{
		AverageDays:    averageInts(gaps),
		MinDays:        low,
		MaxDays:        high,
		CyclesAnalyzed: len(gaps),
	}, true
}

// AveragePeriodDuration counts both the start and end day of each ended period.
func AveragePeriodDuration(periods []models.Period) (PeriodDurationStats, bool) {
	durations := make([]int, 0, len(periods))
	for _, period := range periods {
		if period.IsPredicted || period.EndDate == nil {
			continue
		}
		duration := wholeDaysBetween(period.StartDate, *period.EndDate) + 1
		if duration > 0 && duration < maxPlausiblePeriodDurationDays {
			durations = append(durations, duration)
		}
	}

	low, high, ok := minMaxInts(durations)
	if !ok {
		return PeriodDurationStats{}, false
	}
	return PeriodDurationStats{
		AverageDays:     averageInts(durations),
		MinDays:         low,
		MaxDays:         high,
		PeriodsAnalyzed: len(durations),
	}, true
}

func AnalyzeRegularity(periods []models.Period) (RegularityAnalysis, bool) {
	stats, ok := AverageCycleDuration(periods)
	if !ok {
		return RegularityAnalysis{}, false
	}
	variation := stats.MaxDays - stats.MinDays
	return RegularityAnalysis{
		Regularity:   ClassifyRegularity(variation),
		Variation:    variation,
		AverageCycle: stats.AverageDays,
	}, true
}

// ClassifyRegularity maps the spread between the longest and shortest cycle to
// a label. Upper bounds are inclusive.
func ClassifyRegularity(variation int) Regularity {
	switch {
	case variation <= 3:
		return RegularityVeryRegular
	case variation <= 7:
		return RegularityRegular
	case variation <= 14:
		return RegularityModeratelyRegular
	default:
		return RegularityIrregular
	}
}

type AnalyticsUserReader interface {
	FindByID(ctx context.Context, userID uint) (models.User, error)
}

type AnalyticsPeriodReader interface {
	List(ctx context.Context, userID uint, filter models.PeriodFilter) ([]models.Period, error)
}

type AnalyticsService struct {
	users      AnalyticsUserReader
	periods    AnalyticsPeriodReader
	calculator *CycleCalculator
	logger     *zap.Logger
}

func NewAnalyticsService(users AnalyticsUserReader, periods AnalyticsPeriodReader, calculator *CycleCalculator, logger *zap.Logger) *AnalyticsService {
	if calculator == nil {
		calculator = NewCycleCalculator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		users:      users,
		periods:    periods,
		calculator: calculator,
		logger:     logger,
	}
}

// FullAnalytics composes the duration, regularity and forecast views over the
// user's most recent ended observed periods.
func (service *AnalyticsService) FullAnalytics(ctx context.Context, userID uint, cycles int) (CycleAnalytics, error) {
	if cycles <= 0 {
		cycles = DefaultAnalyticsCycles
	}

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			service.logger.Warn("analytics requested for unknown user", zap.Uint("user_id", userID))
			return CycleAnalytics{}, ErrUserNotFound
		}
		return CycleAnalytics{}, fmt.Errorf("load user: %w", err)
	}

	// One extra period yields the requested number of gaps.
	fetched, err := service.periods.List(ctx, userID, models.PeriodFilter{
		Predicted:  models.Observed(),
		RequireEnd: true,
		Descending: true,
		Limit:      cycles + 1,
	})
	if err != nil {
		return CycleAnalytics{}, fmt.Errorf("load periods: %w", err)
	}
	recent := fetched
	if len(recent) > cycles {
		recent = recent[:cycles]
	}

	analytics := CycleAnalytics{RecentPeriods: recent}
	if stats, ok := AverageCycleDuration(fetched); ok {
		analytics.CycleDuration = &stats
	} else {
		service.logger.Info("not enough history for cycle duration", zap.Uint("user_id", userID))
	}
	if stats, ok := AveragePeriodDuration(recent); ok {
		analytics.PeriodDuration = &stats
	} else {
		service.logger.Info("not enough history for period duration", zap.Uint("user_id", userID))
	}
	if regularity, ok := AnalyzeRegularity(fetched); ok {
		analytics.Regularity = &regularity
	}

	var base *time.Time
	if len(fetched) > 0 {
		latest := fetched[0].StartDate
		base = &latest
	}
	analytics.NextPeriod = service.calculator.NextPeriod(&user, base)
	analytics.NextOvulation = service.calculator.NextOvulation(&user, base)

	return analytics, nil
}

func endedMostRecentFirst(periods []models.Period) []models.Period {
	ended := make([]models.Period, 0, len(periods))
	for _, period := range periods {
		if !period.IsPredicted && period.EndDate != nil {
			ended = append(ended, period)
		}
	}
	sort.SliceStable(ended, func(i, j int) bool {
		return ended[i].StartDate.After(ended[j].StartDate)
	})
	return ended
}

func averageInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0
	for _, value := range values {
		total += value
	}
	return float64(total) / float64(len(values))
}
