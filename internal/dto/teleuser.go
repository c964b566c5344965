package dto

import (
	"time"

	"github.com/nordwell/ordercore/internal/entity"
)

// TelegramUserResponse represents a bot-channel identity.
type TelegramUserResponse struct {
	TelegramUserID int64     `json:"telegram_user_id"`
	Phone          string    `json:"phone"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	Username       string    `json:"username,omitempty"`
	AuthorizedAt   time.Time `json:"authorized_at"`
	LastActivity   time.Time `json:"last_activity"`
}

// NewTelegramUserResponse maps a telegram user entity.
func NewTelegramUserResponse(user *entity.TelegramUser) TelegramUserResponse {
	return TelegramUserResponse{
		TelegramUserID: user.TelegramUserID,
		Phone:          user.Phone,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		AuthorizedAt:   user.AuthorizedAt,
		LastActivity:   user.LastActivity,
	}
}
