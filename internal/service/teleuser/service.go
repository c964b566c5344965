package teleuser

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
	"github.com/nordwell/ordercore/pkg/clock"
	"github.com/nordwell/ordercore/pkg/errorbank"
	"github.com/nordwell/ordercore/pkg/phone"
)

var serviceTracer = otel.Tracer("github.com/nordwell/ordercore/service/teleuser")

// Service manages bot-channel identities. A telegram user becomes
// authorized by sharing a phone number, which is stored normalized.
type Service struct {
	repo   repository.TelegramUsers
	clock  clock.Clock
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repository.TelegramUsers
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, clock: p.Clock, logger: p.Logger}
}

// AuthorizeInput carries the identity details shared by the bot.
type AuthorizeInput struct {
	TelegramUserID int64
	Phone          string
	FirstName      string
	LastName       string
	Username       string
}

// Authorize registers or refreshes a telegram identity. Repeat calls
// update the stored contact details and activity timestamp.
func (s *Service) Authorize(ctx context.Context, in AuthorizeInput) (*entity.TelegramUser, error) {
	ctx, span := serviceTracer.Start(ctx, "TelegramUserService.Authorize", trace.WithAttributes(attribute.Int64("telegram.user_id", in.TelegramUserID)))
	defer span.End()

	if in.TelegramUserID <= 0 {
		return nil, errorbank.BadRequest("telegram user id is required")
	}
	normalized, ok := phone.Normalize(in.Phone)
	if !ok {
		return nil, errorbank.BadRequest("phone has no digits")
	}

	now := s.clock.Now()
	user := &entity.TelegramUser{
		TelegramUserID: in.TelegramUserID,
		Phone:          normalized,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Username:       strings.TrimSpace(in.Username),
		AuthorizedAt:   now,
		LastActivity:   now,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorbank.Conflict("phone is already linked to another telegram user")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to authorize telegram user", errorbank.WithCause(err))
	}

	s.logger.Info("telegram user authorized", zap.Int64("telegram_user_id", user.TelegramUserID))
	return user, nil
}

// Get loads one telegram identity.
func (s *Service) Get(ctx context.Context, telegramUserID int64) (*entity.TelegramUser, error) {
	ctx, span := serviceTracer.Start(ctx, "TelegramUserService.Get", trace.WithAttributes(attribute.Int64("telegram.user_id", telegramUserID)))
	defer span.End()

	user, err := s.repo.GetByID(ctx, telegramUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFound("telegram user not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load telegram user", errorbank.WithCause(err))
	}
	return user, nil
}

// IsAuthorized reports whether the telegram user shared a phone.
func (s *Service) IsAuthorized(ctx context.Context, telegramUserID int64) (bool, error) {
	user, err := s.Get(ctx, telegramUserID)
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) && appErr.Kind() == errorbank.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return user.Phone != "", nil
}

// Touch records bot activity for the user.
func (s *Service) Touch(ctx context.Context, telegramUserID int64) error {
	ctx, span := serviceTracer.Start(ctx, "TelegramUserService.Touch", trace.WithAttributes(attribute.Int64("telegram.user_id", telegramUserID)))
	defer span.End()

	if err := s.repo.TouchActivity(ctx, telegramUserID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorbank.NotFound("telegram user not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to record activity", errorbank.WithCause(err))
	}
	return nil
}
