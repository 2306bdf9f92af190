package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Region is an Indonesian administrative region reference as delivered by the
// wilayah API the frontend uses (province, city, district).
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a marketplace account. Sellers additionally own a Store.
type User struct {
	ID           string                          `gorm:"type:uuid;primaryKey" json:"id"`
	FullName     string                          `gorm:"type:varchar(255);not null" json:"fullName"`
	Email        string                          `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string                          `gorm:"type:varchar(255);not null" json:"-"`
	PhoneNumber  string                          `gorm:"type:varchar(32)" json:"phoneNumber"`
	Role         string                          `gorm:"type:varchar(32);not null;default:'user'" json:"role"`
	Provinsi     datatypes.JSONType[Region]      `gorm:"type:jsonb" json:"provinsi"`
	Kota         datatypes.JSONType[Region]      `gorm:"type:jsonb" json:"kota"`
	Kecamatan    datatypes.JSONType[Region]      `gorm:"type:jsonb" json:"kecamatan"`
	DetailAlamat string                          `gorm:"type:text" json:"detailAlamat"`
	CreatedAt    time.Time                       `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time                       `gorm:"not null" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	return nil
}

func (User) TableName() string {
	return "users"
}
