package model

import "time"

type Document struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:36;not null;index" json:"user_id"`
	Name            string    `gorm:"size:256;not null" json:"name"`
	Path            string    `gorm:"size:512;not null" json:"path"`
	VectorStorePath string    `gorm:"size:512;not null" json:"vector_store_path"`
	Topic           string    `gorm:"size:128" json:"topic"`
	RefPath         string    `gorm:"size:512" json:"ref_knowledge_path"`
	CreatedAt       time.Time `json:"created_at"`
}
