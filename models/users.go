package models

import "time"

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	Email            string     `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password         string     `gorm:"type:varchar(255);not null" json:"-"`
	Role             string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Phone            string     `gorm:"type:varchar(30)" json:"phone"`
	Department       string     `gorm:"type:varchar(255)" json:"department"`
	Bio              string     `gorm:"type:text" json:"bio"`
	IsVerified       bool       `gorm:"not null;default:false" json:"is_verified"`
	VerificationCode string     `gorm:"type:varchar(10)" json:"-"`
	VerificationExp  *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsOrganizer reports whether the user may own events.
func (u *User) IsOrganizer() bool {
	return u.Role == RoleOrganizer || u.Role == RoleAdmin
}
