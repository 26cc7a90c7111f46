package model

import "time"

// ChatTurn is one question and the full streamed answer it produced.
type ChatTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Endpoint  string    `gorm:"size:32;not null" json:"endpoint"`
	Topic     string    `gorm:"size:128" json:"topic"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
