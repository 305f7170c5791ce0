package models

import "time"

const (
	DefaultCycleLength  = 28
	DefaultPeriodLength = 5
)

type User struct {
	ID                       uint   `gorm:"primaryKey"`
	Email                    string `gorm:"uniqueIndex;not null"`
	CycleLength              int    `gorm:"not null;default:28"`
	PeriodLength             int    `gorm:"not null;default:5"`
	MinCycleLength           *int
	MaxCycleLength           *int
	MinPeriodLength          *int
	MaxPeriodLength          *int
	LastCycleVariationUpdate *time.Time
	TimeZone                 string `gorm:"not null;default:''"`
	RemindPeriod             bool   `gorm:"not null;default:false"`
	RemindOvulation          bool   `gorm:"not null;default:false"`
	CreatedAt                time.Time
	UpdatedAt                time.Time

	Periods    []Period    `gorm:"foreignKey:UserID"`
	Ovulations []Ovulation `gorm:"foreignKey:UserID"`
}

// ObservedPeriods returns the user's non-predicted periods in their loaded order.
func (user *User) ObservedPeriods() []Period {
	if user == nil {
		return nil
	}
	observed := make([]Period, 0, len(user.Periods))
	for _, period := range user.Periods {
		if !period.IsPredicted {
			observed = append(observed, period)
		}
	}
	return observed
}
