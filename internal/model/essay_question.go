package model

// EssayQuestion is a past-paper essay question. Only questions with a known
// exam year are eligible for the mock exam pool.
// swagger:model
type EssayQuestion struct {
	BaseModel

	SubjectID    uint   `gorm:"index;type:bigint unsigned" json:"subjectId"`
	QuestionText string `gorm:"type:text" json:"questionText"`
	Year         *int   `gorm:"index" json:"year"`
	PaperNumber  int    `json:"paperNumber"`

	Subject Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

func (EssayQuestion) TableName() string {
	return "essay_questions"
}
