package models

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	IsActive     bool       `gorm:"not null"                 json:"is_active"`
	IsAdmin      bool       `gorm:"not null"                 json:"is_admin"`
	CreatedAt    time.Time  `gorm:"not null"                 json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Conversation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"not null"                 json:"title"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	CreatedAt time.Time `gorm:"not null"                 json:"created_at"`
	UpdatedAt time.Time `gorm:"not null"                 json:"updated_at"`
}

type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"index;not null"           json:"conversation_id"`
	Role           string    `gorm:"not null"                 json:"role"`
	Content        string    `gorm:"not null"                 json:"content"`
	CreatedAt      time.Time `gorm:"not null"                 json:"created_at"`

	InputTokens  *int     `json:"input_tokens"`
	OutputTokens *int     `json:"output_tokens"`
	Cost         *float64 `json:"cost"`
}

type UsageRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	UserID       uint      `gorm:"uniqueIndex:idx_usage_user_date;not null" json:"user_id"`
	Date         time.Time `gorm:"uniqueIndex:idx_usage_user_date;not null" json:"date"`
	InputTokens  int       `gorm:"not null;default:0"                    json:"input_tokens"`
	OutputTokens int       `gorm:"not null;default:0"                    json:"output_tokens"`
	Cost         float64   `gorm:"not null;default:0"                    json:"cost"`
}
