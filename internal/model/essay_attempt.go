package model

// EssayAttempt is one answer to one question, either inside a simulation or as
// standalone practice. The unique index makes a duplicate simulation submission
// a storage-level conflict rather than a second row. Grading fields stay null
// until the simulation finishes (or immediately for standalone practice).
// swagger:model
type EssayAttempt struct {
	BaseModel

	UserID           uint   `gorm:"index;type:bigint unsigned" json:"userId"`
	SimulationID     *uint  `gorm:"uniqueIndex:idx_sim_question;type:bigint unsigned" json:"simulationId,omitempty"`
	QuestionID       uint   `gorm:"uniqueIndex:idx_sim_question;type:bigint unsigned" json:"questionId"`
	IsSimulation     bool   `gorm:"default:false" json:"isSimulation"`
	AnswerText       string `gorm:"type:longtext" json:"answerText"`
	WordCount        int    `json:"wordCount"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`

	AIScore      *int   `json:"aiScore,omitempty"`
	Band         string `gorm:"size:40" json:"band,omitempty"`
	Feedback     string `gorm:"type:text" json:"feedback,omitempty"`
	Strengths    string `gorm:"type:json" json:"strengths,omitempty"`
	Improvements string `gorm:"type:json" json:"improvements,omitempty"`
	SampleAnswer string `gorm:"type:longtext" json:"sampleAnswer,omitempty"`
	TokensUsed   int    `json:"tokensUsed,omitempty"`
}

func (EssayAttempt) TableName() string {
	return "essay_attempts"
}
