package models

import "time"

type Period struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index"`
	StartDate   time.Time `gorm:"not null;index"`
	EndDate     *time.Time
	IsActive    bool `gorm:"not null;default:false"`
	IsPredicted bool `gorm:"not null;default:false"`
	DayOfCycle  int  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasEnded reports whether the period has a recorded end date.
func (period Period) HasEnded() bool {
	return period.EndDate != nil
}

// PeriodFilter narrows a period listing. Nil fields do not filter.
type PeriodFilter struct {
	Predicted  *bool
	From       *time.Time
	To         *time.Time
	RequireEnd bool
	Descending bool
	Limit      int
}

func Observed() *bool {
	value := false
	return &value
}

func Predicted() *bool {
	value := true
	return &value
}
