package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// TelegramUser maps a bot identity to a phone-keyed customer. The phone
// is stored normalized and is unique across users.
type TelegramUser struct {
	bun.BaseModel `bun:"table:telegram_users,alias:tu"`

	TelegramUserID int64     `bun:"telegram_user_id,pk"`
	Phone          string    `bun:"phone,notnull"`
	FirstName      string    `bun:"first_name,nullzero"`
	LastName       string    `bun:"last_name,nullzero"`
	Username       string    `bun:"username,nullzero"`
	AuthorizedAt   time.Time `bun:"authorized_at,notnull"`
	LastActivity   time.Time `bun:"last_activity,notnull"`
}
