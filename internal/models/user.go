package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a sender or receiver of parcels. Riders live in their own table.
type User struct {
	gorm.Model
	Username     string        `gorm:"column:username;not null" json:"username"`
	Phone        string        `gorm:"column:phone;unique;not null" json:"phone"`
	Password     string        `gorm:"-:all" json:"-"` // Temporary field for password handling
	PasswordHash string        `gorm:"column:password_hash;not null" json:"-"`
	ProfileImage string        `gorm:"column:profile_image" json:"profileImage,omitempty"`
	Addresses    []UserAddress `gorm:"foreignKey:MemberID" json:"addresses,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
