package model

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// UserRole 用户角色，由身份提供方之外单独维护
type UserRole struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:varchar(36);uniqueIndex:idx_user_role;not null" json:"user_id"`
	Role   Role   `gorm:"size:20;uniqueIndex:idx_user_role;not null" json:"role"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
