package model

// swagger:model
type Lesson struct {
	BaseModel

	ModuleID uint   `gorm:"index;type:bigint unsigned" json:"moduleId"`
	Title    string `gorm:"size:200" json:"title"`
	Content  string `gorm:"type:longtext" json:"content"`
	VideoURL string `gorm:"size:512" json:"videoUrl"`
	// VideoDurationSeconds is null until the uploaded video has been probed.
	// While null, watch-time pings can never auto-complete the lesson.
	VideoDurationSeconds *int `json:"videoDurationSeconds"`
	Order                int  `gorm:"column:sort_order" json:"order"`
	IsPublished          bool `gorm:"default:false" json:"isPublished"`
}

func (Lesson) TableName() string {
	return "lessons"
}
