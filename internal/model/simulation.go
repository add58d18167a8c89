package model

import "time"

type SimulationStatus string

const (
	SimulationInProgress SimulationStatus = "IN_PROGRESS"
	SimulationCompleted  SimulationStatus = "COMPLETED"
	SimulationFailed     SimulationStatus = "FAILED"
)

// Simulation is one timed five-question mock exam attempt. QuestionIDs is the
// ordered question list frozen at creation; it is the authoritative sequence
// for navigation. Once EndedAt is set the row is terminal.
// swagger:model
type Simulation struct {
	BaseModel

	UserID           uint             `gorm:"index;type:bigint unsigned" json:"userId"`
	Status           SimulationStatus `gorm:"size:20;default:IN_PROGRESS" json:"status"`
	QuestionIDs      string           `gorm:"type:json" json:"-"`
	StartedAt        time.Time        `json:"startedAt"`
	EndedAt          *time.Time       `json:"endedAt,omitempty"`
	OverallScore     *int             `json:"overallScore,omitempty"`
	Passed           *bool            `json:"passed,omitempty"`
	TotalTimeSeconds int              `json:"totalTimeSeconds"`
	FailReason       string           `gorm:"size:255" json:"failReason,omitempty"`
}

func (Simulation) TableName() string {
	return "simulations"
}
