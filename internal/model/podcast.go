package model

// swagger:model
type Podcast struct {
	BaseModel

	SubjectID       uint   `gorm:"index;type:bigint unsigned" json:"subjectId"`
	Title           string `gorm:"size:200" json:"title"`
	Description     string `gorm:"type:text" json:"description"`
	AudioKey        string `gorm:"size:512" json:"-"` // object storage key
	DurationSeconds int    `json:"durationSeconds"`
	IsPublished     bool   `gorm:"default:false" json:"isPublished"`
}

func (Podcast) TableName() string {
	return "podcasts"
}
