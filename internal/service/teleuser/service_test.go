package teleuser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type memTelegramUsers struct {
	mu      sync.Mutex
	users   map[int64]*entity.TelegramUser
	byPhone map[string]int64
}

func newMemTelegramUsers() *memTelegramUsers {
	return &memTelegramUsers{
		users:   make(map[int64]*entity.TelegramUser),
		byPhone: make(map[string]int64),
	}
}

func (m *memTelegramUsers) Upsert(ctx context.Context, user *entity.TelegramUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.byPhone[user.Phone]; ok && owner != user.TelegramUserID {
		return repository.ErrDuplicate
	}
	if existing, ok := m.users[user.TelegramUserID]; ok {
		delete(m.byPhone, existing.Phone)
		user.AuthorizedAt = existing.AuthorizedAt
	}
	cp := *user
	m.users[user.TelegramUserID] = &cp
	m.byPhone[user.Phone] = user.TelegramUserID
	return nil
}

func (m *memTelegramUsers) GetByID(ctx context.Context, telegramUserID int64) (*entity.TelegramUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *memTelegramUsers) TouchActivity(ctx context.Context, telegramUserID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramUserID]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastActivity = at
	return nil
}

func newTestService() (*Service, *memTelegramUsers) {
	repo := newMemTelegramUsers()
	svc := NewService(Params{
		Repository: repo,
		Clock:      fixedClock{t: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)},
		Logger:     zap.NewNop(),
	})
	return svc, repo
}

func TestAuthorizeNormalizesPhone(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Authorize(context.Background(), AuthorizeInput{
		TelegramUserID: 42,
		Phone:          "8 (903) 000-11-22",
		FirstName:      "Ivan",
	})
	require.NoError(t, err)
	assert.Equal(t, "+79030001122", user.Phone)
	assert.Equal(t, "Ivan", user.FirstName)
}

func TestAuthorizeValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Authorize(context.Background(), AuthorizeInput{TelegramUserID: 0, Phone: "+79030001122"})
	assert.Error(t, err)

	_, err = svc.Authorize(context.Background(), AuthorizeInput{TelegramUserID: 42, Phone: "no digits"})
	assert.Error(t, err)
}

func TestAuthorizeRejectsPhoneTakenByAnotherUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Authorize(ctx, AuthorizeInput{TelegramUserID: 1, Phone: "+79030001122"})
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, AuthorizeInput{TelegramUserID: 2, Phone: "+79030001122"})
	assert.Error(t, err)
}

func TestIsAuthorized(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ok, err := svc.IsAuthorized(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Authorize(ctx, AuthorizeInput{TelegramUserID: 42, Phone: "+79030001122"})
	require.NoError(t, err)

	ok, err = svc.IsAuthorized(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTouchUpdatesActivity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Authorize(ctx, AuthorizeInput{TelegramUserID: 42, Phone: "+79030001122"})
	require.NoError(t, err)

	require.NoError(t, svc.Touch(ctx, 42))

	user, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), user.LastActivity)

	assert.Error(t, svc.Touch(ctx, 999))
}
