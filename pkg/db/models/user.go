package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// User mirrors the identity provider's profile row; the engine only relies
// on the id and the user type.
type User struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FullName          string         `gorm:"column:full_name;not null" json:"full_name"`
	Email             *string        `gorm:"column:email;uniqueIndex" json:"email,omitempty"`
	Phone             *string        `gorm:"column:phone" json:"phone,omitempty"`
	UserType          enums.UserType `gorm:"column:user_type;not null;default:buyer" json:"user_type"`
	PreferredLanguage string         `gorm:"column:preferred_language;not null;default:ar" json:"preferred_language"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
