package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model
type User struct {
	BaseModel

	Name     string   `gorm:"size:120" json:"name"`
	Email    string   `gorm:"size:255;uniqueIndex" json:"email"`
	Password string   `gorm:"size:255" json:"-"`
	Role     UserRole `gorm:"size:20;default:student" json:"role"`
}

func (User) TableName() string {
	return "users"
}
