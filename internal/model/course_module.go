package model

// CourseModule groups lessons inside a subject.
// swagger:model
type CourseModule struct {
	BaseModel

	SubjectID   uint   `gorm:"index;type:bigint unsigned" json:"subjectId"`
	Title       string `gorm:"size:200" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order" json:"order"`
	IsPublished bool   `gorm:"default:false" json:"isPublished"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}
