package models

import "time"

type Ovulation struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index"`
	StartDate   time.Time `gorm:"not null;index"`
	EndDate     time.Time `gorm:"not null"`
	IsPredicted bool      `gorm:"not null;default:false"`
	Symptoms    string
	CreatedAt   time.Time
}

type OvulationFilter struct {
	Predicted *bool
	From      *time.Time
	To        *time.Time
}
