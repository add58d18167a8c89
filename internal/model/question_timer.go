package model

import "time"

// QuestionTimer measures how long a user spends on one question during a
// simulation. It only exists to compute TimeTakenSeconds for the attempt and
// is closed when the answer is submitted.
// swagger:model
type QuestionTimer struct {
	BaseModel

	PublicID     string     `gorm:"size:36;uniqueIndex" json:"timerId"`
	UserID       uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	SimulationID uint       `gorm:"index;type:bigint unsigned" json:"simulationId"`
	QuestionID   uint       `gorm:"type:bigint unsigned" json:"questionId"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

func (QuestionTimer) TableName() string {
	return "question_timers"
}
