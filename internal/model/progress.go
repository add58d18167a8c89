package model

import "time"

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "NOT_STARTED"
	StatusInProgress ProgressStatus = "IN_PROGRESS"
	StatusCompleted  ProgressStatus = "COMPLETED"
)

// LessonProgress is the leaf of the rollup tree, one row per (user, lesson).
// Completion is monotonic: once set it is never reverted by a lower watch time.
// swagger:model
type LessonProgress struct {
	BaseModel

	UserID              uint       `gorm:"uniqueIndex:idx_user_lesson;type:bigint unsigned" json:"userId"`
	LessonID            uint       `gorm:"uniqueIndex:idx_user_lesson;type:bigint unsigned" json:"lessonId"`
	VideoWatchedSeconds int        `json:"videoWatchedSeconds"`
	IsCompleted         bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	TimeSpentSeconds    int        `json:"timeSpentSeconds"`
}

func (LessonProgress) TableName() string {
	return "lesson_progresses"
}

// ModuleProgress is derived entirely from the user's LessonProgress rows in
// the module. It is recomputed, never independently mutated.
// swagger:model
type ModuleProgress struct {
	BaseModel

	UserID           uint           `gorm:"uniqueIndex:idx_user_module;type:bigint unsigned" json:"userId"`
	ModuleID         uint           `gorm:"uniqueIndex:idx_user_module;type:bigint unsigned" json:"moduleId"`
	CompletedLessons int            `json:"completedLessons"`
	TotalLessons     int            `json:"totalLessons"`
	ProgressPercent  float64        `json:"progressPercent"`
	Status           ProgressStatus `gorm:"size:20;default:NOT_STARTED" json:"status"`
	LastAccessedAt   *time.Time     `json:"lastAccessedAt,omitempty"`
}

func (ModuleProgress) TableName() string {
	return "module_progresses"
}

// SubjectProgress aggregates the user's module progress within a subject.
// ProgressPercent is the unweighted mean of module percentages.
// swagger:model
type SubjectProgress struct {
	BaseModel

	UserID           uint           `gorm:"uniqueIndex:idx_user_subject;type:bigint unsigned" json:"userId"`
	SubjectID        uint           `gorm:"uniqueIndex:idx_user_subject;type:bigint unsigned" json:"subjectId"`
	ProgressPercent  float64        `json:"progressPercent"`
	Status           ProgressStatus `gorm:"size:20;default:NOT_STARTED" json:"status"`
	TotalTimeSeconds int            `json:"totalTimeSeconds"`
	LastAccessedAt   *time.Time     `json:"lastAccessedAt,omitempty"`
}

func (SubjectProgress) TableName() string {
	return "subject_progresses"
}
