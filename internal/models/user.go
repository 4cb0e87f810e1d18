package models

import (
	"strings"

	"gorm.io/gorm"
)

// User is a registered account. Email is the identity carried in tokens.
type User struct {
	BaseModel

	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	Confirmed bool   `gorm:"default:false;not null" json:"confirmed"`
}

// BeforeSave stores emails in their canonical lower-case form.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail trims and lower-cases an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
