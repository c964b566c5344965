package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Product is a catalog row kept current by the ERP sync process. The
// article is immutable once created; price and stock are never negative.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	Article   string     `bun:"article,notnull"`
	Name      string     `bun:"name,notnull"`
	Price     int64      `bun:"price,notnull"`
	Stock     int64      `bun:"stock,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
	UpdatedAt time.Time  `bun:"updated_at,notnull"`
	SyncedAt  *time.Time `bun:"synced_at,nullzero"`
}
