package order

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/messaging"
	"github.com/nordwell/ordercore/internal/ordernum"
	"github.com/nordwell/ordercore/internal/repository"
	"github.com/nordwell/ordercore/internal/tracking"
	"github.com/nordwell/ordercore/pkg/errorbank"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type fakeCounter struct {
	value int64
}

func (c *fakeCounter) Next(context.Context) (int64, error) {
	return atomic.AddInt64(&c.value, 1), nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*entity.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*entity.Order)}
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = make([]*entity.OrderItem, len(o.Items))
	for i, item := range o.Items {
		itemCopy := *item
		cp.Items[i] = &itemCopy
	}
	return &cp
}

func (m *memOrders) Create(ctx context.Context, order *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memOrders) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (m *memOrders) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Order
	for _, order := range m.orders {
		if f.Status != "" && order.Status != f.Status {
			continue
		}
		if f.Channel != "" && order.Channel != f.Channel {
			continue
		}
		if f.Phone != "" && order.CustomerPhone != f.Phone {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	return out, len(out), nil
}

func (m *memOrders) ListByStatus(ctx context.Context, statuses []entity.OrderStatus, limit int) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Order
	for _, order := range m.orders {
		for _, s := range statuses {
			if order.Status == s {
				out = append(out, cloneOrder(order))
				break
			}
		}
	}
	return out, nil
}

func (m *memOrders) ListByPhone(ctx context.Context, phone string, telegramUserID *int64) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Order
	for _, order := range m.orders {
		if order.CustomerPhone != phone {
			continue
		}
		if order.Channel == entity.ChannelChatBot {
			if telegramUserID == nil || order.TelegramUserID == nil || *order.TelegramUserID != *telegramUserID {
				continue
			}
		}
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next entity.OrderStatus, up repository.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != expected {
		return repository.ErrConflict
	}
	order.Status = next
	order.UpdatedAt = up.UpdatedAt
	if up.PaidAt != nil && order.PaidAt == nil {
		order.PaidAt = up.PaidAt
	}
	if up.ShippedAt != nil && order.ShippedAt == nil {
		order.ShippedAt = up.ShippedAt
	}
	if up.TrackingNumber != "" {
		order.TrackingNumber = up.TrackingNumber
	}
	if up.TransactionID != "" {
		order.TransactionID = up.TransactionID
	}
	if up.InvoiceExported {
		order.InvoiceExported = true
	}
	return nil
}

func (m *memOrders) UpdateCustomer(ctx context.Context, id uuid.UUID, up repository.CustomerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if up.Name != nil {
		order.CustomerName = *up.Name
	}
	if up.Phone != nil {
		order.CustomerPhone = *up.Phone
	}
	if up.Address != nil {
		order.CustomerAddress = *up.Address
	}
	order.UpdatedAt = up.UpdatedAt
	return nil
}

type memCatalog struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func newMemCatalog(products ...*entity.Product) *memCatalog {
	m := &memCatalog{products: make(map[string]*entity.Product)}
	for _, p := range products {
		m.products[p.Article] = p
	}
	return m
}

func (m *memCatalog) GetByArticle(ctx context.Context, article string) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[article]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *product
	return &cp, nil
}

func (m *memCatalog) List(ctx context.Context, page, pageSize int) ([]*entity.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Product
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memCatalog) Upsert(ctx context.Context, products []*entity.Product, syncedAt time.Time) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created, updated := 0, 0
	for _, p := range products {
		if _, ok := m.products[p.Article]; ok {
			updated++
		} else {
			created++
		}
		cp := *p
		m.products[p.Article] = &cp
	}
	return created, updated, nil
}

func (m *memCatalog) Delete(ctx context.Context, article string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[article]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, article)
	return nil
}

func (m *memCatalog) setPrice(article string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[article].Price = price
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(ctx context.Context, key, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Consume(ctx context.Context, handler messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *capturePublisher) Topic() string { return "orders.events" }

func (p *capturePublisher) last() (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return Event{}, false
	}
	return p.events[len(p.events)-1], true
}

type fakeExporter struct {
	calls int32
	fail  bool
}

func (e *fakeExporter) ExportInvoice(ctx context.Context, order *entity.Order) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.fail {
		return "", errors.New("erp unreachable")
	}
	return "INV-" + strings.TrimPrefix(order.Number, "ORD-"), nil
}

type testEnv struct {
	svc       *Service
	orders    *memOrders
	catalog   *memCatalog
	publisher *capturePublisher
	exporter  *fakeExporter
	clock     fixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := fixedClock{t: time.Date(2026, 8, 30, 10, 0, 0, 123456000, time.UTC)}
	orders := newMemOrders()
	catalog := newMemCatalog(
		&entity.Product{ID: uuid.New(), Article: "TEA-001", Name: "Green tea 100g", Price: 1500, Stock: 10},
		&entity.Product{ID: uuid.New(), Article: "MUG-010", Name: "Ceramic mug", Price: 6900, Stock: 2},
	)
	publisher := &capturePublisher{}
	exporter := &fakeExporter{}

	svc := NewService(Params{
		Orders:    orders,
		Catalog:   catalog,
		Numbers:   ordernum.NewGenerator(ordernum.Params{Counter: &fakeCounter{value: 999}, Clock: clk}),
		Tracking:  tracking.NewGenerator(clk),
		Exporter:  exporter,
		Clock:     clk,
		Logger:    zap.NewNop(),
		Publisher: publisher,
	})
	return &testEnv{svc: svc, orders: orders, catalog: catalog, publisher: publisher, exporter: exporter, clock: clk}
}

func validCreateInput() CreateInput {
	return CreateInput{
		Channel:         "web_form",
		CustomerName:    "Anna Petrova",
		CustomerPhone:   "8 (916) 123-45-67",
		CustomerAddress: "Moscow, Tverskaya 1",
		DeliveryCost:    300,
		Items: []ItemInput{
			{Article: "TEA-001", Quantity: 2},
			{Article: "MUG-010", Quantity: 1},
		},
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestCreateSnapshotsPricing(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-1000", order.Number)
	assert.Equal(t, entity.StatusNew, order.Status)
	assert.Equal(t, "+79161234567", order.CustomerPhone)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Green tea 100g", order.Items[0].ProductName)
	assert.Equal(t, int64(1500), order.Items[0].PriceAtOrder)
	assert.Equal(t, int64(3000), order.Items[0].Total)
	// 2*1500 + 1*6900 + 300 delivery
	assert.Equal(t, int64(10200), order.TotalAmount)

	event, ok := env.publisher.last()
	require.True(t, ok)
	assert.Equal(t, EventOrderCreated, event.Event)
	assert.Equal(t, order.ID, event.OrderID)
}

func TestCreateLaterCatalogChangesDoNotAffectOrder(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	env.catalog.setPrice("TEA-001", 9999)

	reloaded, err := env.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), reloaded.Items[0].PriceAtOrder)
	assert.Equal(t, int64(10200), reloaded.TotalAmount)
}

func TestCreateUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	in := validCreateInput()
	in.Items = []ItemInput{{Article: "NOPE-000", Quantity: 1}}

	_, err := env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeProductNotFound)
}

func TestCreateInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	in := validCreateInput()
	in.Items = []ItemInput{{Article: "MUG-010", Quantity: 3}}

	_, err := env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeInsufficientStock)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	in := validCreateInput()
	in.Channel = "fax"
	_, err := env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeValidation)

	in = validCreateInput()
	in.Items = nil
	_, err = env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeValidation)

	in = validCreateInput()
	in.Items[0].Quantity = 0
	_, err = env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeValidation)

	in = validCreateInput()
	in.CustomerPhone = "no digits here"
	_, err = env.svc.Create(context.Background(), in)
	assertCode(t, err, CodeValidation)
}

func TestTransitionRejectsSkips(t *testing.T) {
	env := newTestEnv(t)
	order, err := env.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = env.svc.Transition(context.Background(), order.ID, entity.StatusPaid)
	assertCode(t, err, CodeInvalidTransition)

	_, err = env.svc.Transition(context.Background(), order.ID, entity.StatusNew)
	assertCode(t, err, CodeInvalidTransition)
}

func TestTransitionValidatedRequiresCustomerData(t *testing.T) {
	env := newTestEnv(t)

	in := validCreateInput()
	in.CustomerAddress = ""
	order, err := env.svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = env.svc.Transition(context.Background(), order.ID, entity.StatusValidated)
	assertCode(t, err, CodeValidation)
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	order, err = env.svc.Transition(ctx, order.ID, entity.StatusValidated)
	require.NoError(t, err)
	order, err = env.svc.Transition(ctx, order.ID, entity.StatusInvoiceCreated)
	require.NoError(t, err)

	order, err = env.svc.Pay(ctx, order.ID, "txn-123")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPaid, order.Status)
	assert.Equal(t, "txn-123", order.TransactionID)
	require.NotNil(t, order.PaidAt)

	event, ok := env.publisher.last()
	require.True(t, ok)
	assert.Equal(t, EventOrderStatusChanged, event.Event)
	assert.Equal(t, entity.StatusPaid, event.To)

	require.NoError(t, env.svc.ProcessPaid(ctx, order.ID))
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.exporter.calls))

	order, err = env.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTrackingIssued, order.Status)
	assert.True(t, order.InvoiceExported)
	assert.Regexp(t, `^TRACK-20260830-\d{6}$`, order.TrackingNumber)

	order, err = env.svc.Transition(ctx, order.ID, entity.StatusShipped)
	require.NoError(t, err)
	require.NotNil(t, order.ShippedAt)

	// shipped is terminal
	_, err = env.svc.Cancel(ctx, order.ID)
	assertCode(t, err, CodeInvalidTransition)
}

func TestPayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusValidated)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusInvoiceCreated)
	require.NoError(t, err)

	first, err := env.svc.Pay(ctx, order.ID, "txn-1")
	require.NoError(t, err)

	second, err := env.svc.Pay(ctx, order.ID, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.PaidAt, second.PaidAt)

	// a different transaction against a paid order is a real conflict
	_, err = env.svc.Pay(ctx, order.ID, "txn-2")
	assertCode(t, err, CodeInvalidTransition)
}

func TestPayGeneratesTransactionID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusValidated)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusInvoiceCreated)
	require.NoError(t, err)

	order, err = env.svc.Pay(ctx, order.ID, "")
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-20260830-100000-\d{6}$`, order.TransactionID)
}

func TestIssueTrackingRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	// not yet registered in 1C
	_, err = env.svc.IssueTracking(ctx, order.ID)
	assertCode(t, err, CodeTrackingNotAllowed)

	_, err = env.svc.Transition(ctx, order.ID, entity.StatusValidated)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusInvoiceCreated)
	require.NoError(t, err)
	_, err = env.svc.Pay(ctx, order.ID, "txn-1")
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entity.StatusOrderCreated1C)
	require.NoError(t, err)

	issued, err := env.svc.IssueTracking(ctx, order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TrackingNumber)

	// tracking numbers are immutable
	_, err = env.svc.IssueTracking(ctx, issued.ID)
	assertCode(t, err, CodeTrackingNotAllowed)
}

func TestProcessPaidSkipsNonPaidOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	require.NoError(t, env.svc.ProcessPaid(ctx, order.ID))
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.exporter.calls))

	reloaded, err := env.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, reloaded.Status)
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	const racers = 20
	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := env.svc.Cancel(ctx, order.ID); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				var appErr *errorbank.AppError
				if !errors.As(err, &appErr) {
					t.Errorf("unexpected error type: %v", err)
					return
				}
				switch appErr.Code() {
				case CodeConcurrentModification, CodeInvalidTransition:
				default:
					t.Errorf("unexpected error code %q", appErr.Code())
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&wins))

	final, err := env.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, final.Status)
}

func TestUpdateCustomerNormalizesPhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	newPhone := "8 903 000 11 22"
	updated, err := env.svc.UpdateCustomer(ctx, order.ID, nil, &newPhone, nil)
	require.NoError(t, err)
	assert.Equal(t, "+79030001122", updated.CustomerPhone)
	assert.Equal(t, order.CustomerName, updated.CustomerName)
}

func TestListNormalizesPhoneFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	orders, total, err := env.svc.List(ctx, repository.OrderFilter{Phone: "8 (916) 123-45-67"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	_, _, err = env.svc.List(ctx, repository.OrderFilter{Phone: "---"})
	assertCode(t, err, CodeValidation)
}
