package model

// Subject is a top-level FE-1 exam subject (e.g. Contract, Tort, Constitutional).
// swagger:model
type Subject struct {
	BaseModel

	Name        string `gorm:"size:120" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order" json:"order"`
	IsPublished bool   `gorm:"default:false" json:"isPublished"`

	Modules []CourseModule `gorm:"foreignKey:SubjectID" json:"modules,omitempty"`
}

func (Subject) TableName() string {
	return "subjects"
}
