package teleuser

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

var repoTracer = otel.Tracer("github.com/nordwell/ordercore/repository/teleuser")

// Repository stores bot-channel identities.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Upsert creates the user on first authorization or refreshes the stored
// profile and last activity on repeat. A phone already claimed by another
// user yields repository.ErrDuplicate.
func (r *Repository) Upsert(ctx context.Context, user *entity.TelegramUser) error {
	ctx, span := repoTracer.Start(ctx, "TelegramUserRepository.Upsert", trace.WithAttributes(attribute.Int64("telegram.user_id", user.TelegramUserID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(user).
		On("CONFLICT (telegram_user_id) DO UPDATE").
		Set("phone = EXCLUDED.phone").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("username = EXCLUDED.username").
		Set("last_activity = EXCLUDED.last_activity").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
			span.SetStatus(codes.Error, "phone taken")
			return repository.ErrDuplicate
		}
		span.SetStatus(codes.Error, "upsert failed")
		return err
	}
	return nil
}

// GetByID fetches a user by bot identity.
func (r *Repository) GetByID(ctx context.Context, telegramUserID int64) (*entity.TelegramUser, error) {
	ctx, span := repoTracer.Start(ctx, "TelegramUserRepository.GetByID", trace.WithAttributes(attribute.Int64("telegram.user_id", telegramUserID)))
	defer span.End()

	user := new(entity.TelegramUser)
	err := r.reader.NewSelect().Model(user).Where("telegram_user_id = ?", telegramUserID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return user, nil
}

// TouchActivity advances last_activity for an interaction.
func (r *Repository) TouchActivity(ctx context.Context, telegramUserID int64, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "TelegramUserRepository.TouchActivity", trace.WithAttributes(attribute.Int64("telegram.user_id", telegramUserID)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.TelegramUser)(nil)).
		Set("last_activity = ?", at).
		Where("telegram_user_id = ?", telegramUserID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
