package model

import "time"

type User struct {
	Id           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(100);unique;not null"`
	DisplayName  string    `gorm:"type:varchar(100);not null"`
	ProfileImage string    `gorm:"type:varchar(500)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
