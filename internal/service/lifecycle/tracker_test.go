package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/lifecycle"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type stubAPI struct {
	mu         sync.Mutex
	orders     map[string]domain.Order
	payErr     error
	payCalls   int
	getCalls   int
	payBlock   chan struct{}
	payStarted chan struct{}
	startOnce  sync.Once
}

func newStubAPI() *stubAPI {
	return &stubAPI{orders: map[string]domain.Order{}}
}

func (a *stubAPI) CreateOrder(context.Context, []domain.SubmitItem, string) (domain.Order, error) {
	return domain.Order{}, domain.ErrOrderRejected
}

func (a *stubAPI) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.getCalls++
	order, ok := a.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (a *stubAPI) PayOrder(_ context.Context, orderID string) (domain.Order, error) {
	if a.payStarted != nil {
		a.startOnce.Do(func() { close(a.payStarted) })
	}
	if a.payBlock != nil {
		<-a.payBlock
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payCalls++
	if a.payErr != nil {
		return domain.Order{}, a.payErr
	}
	order := a.orders[orderID]
	order.Status = domain.OrderStatusPaid
	a.orders[orderID] = order
	return order, nil
}

func (a *stubAPI) GetProduct(context.Context, string) (domain.ProductSnapshot, error) {
	return domain.ProductSnapshot{}, domain.ErrProductNotFound
}

func (a *stubAPI) setOrder(order domain.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[order.ID] = order
}

func (a *stubAPI) calls() (pay, get int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payCalls, a.getCalls
}

func createdOrder(id string) domain.Order {
	return domain.Order{
		ID:          id,
		Status:      domain.OrderStatusCreated,
		AmountMinor: 1000,
		Items:       []domain.OrderItem{{ProductID: "p1", Qty: 2, PriceMinor: 500}},
		CreatedAt:   time.Now().UTC(),
	}
}

func TestTracker_LoadCachesOrder(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	tracker := lifecycle.NewTracker(api, lifecycle.WithLogger(loggerForTests()))

	order, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCreated, order.Status)

	cached, ok := tracker.Cached("o1")
	require.True(t, ok)
	require.Equal(t, order, cached)
}

func TestTracker_LoadNotFound(t *testing.T) {
	tracker := lifecycle.NewTracker(newStubAPI(), lifecycle.WithLogger(loggerForTests()))

	_, err := tracker.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestTracker_PaySuccess(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	tracker := lifecycle.NewTracker(api, lifecycle.WithLogger(loggerForTests()))

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)

	order, err := tracker.Pay(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, order.Status)

	cached, _ := tracker.Cached("o1")
	require.Equal(t, domain.OrderStatusPaid, cached.Status)
}

func TestTracker_PayOnPaidIsIdempotentNoop(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	tracker := lifecycle.NewTracker(api, lifecycle.WithLogger(loggerForTests()))

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)
	paid, err := tracker.Pay(context.Background(), "o1")
	require.NoError(t, err)

	payBefore, _ := api.calls()
	again, err := tracker.Pay(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, paid, again, "repeated pay must return the cached order unchanged")

	payAfter, _ := api.calls()
	require.Equal(t, payBefore, payAfter, "repeated pay must not issue a network call")
}

func TestTracker_PayDeclinedLeavesCreated(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	api.payErr = domain.ErrPaymentDeclined
	tracker := lifecycle.NewTracker(api, lifecycle.WithLogger(loggerForTests()))

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)

	order, err := tracker.Pay(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrPaymentDeclined)
	require.Equal(t, domain.OrderStatusCreated, order.Status)

	tracker.Wait()
	_, gets := api.calls()
	require.Equal(t, 1, gets, "declined payment must not schedule a reverify")
}

func TestTracker_PayIndeterminateReconcilesToPaid(t *testing.T) {
	api := newStubAPI()
	order := createdOrder("o1")
	api.setOrder(order)
	api.payErr = domain.ErrPaymentIndeterminate
	tracker := lifecycle.NewTracker(api,
		lifecycle.WithLogger(loggerForTests()),
		lifecycle.WithReverifyDelay(10*time.Millisecond),
	)

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)

	// Платёж «завис», но сервер его на самом деле зафиксировал.
	order.Status = domain.OrderStatusPaid
	api.setOrder(order)

	got, err := tracker.Pay(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrPaymentIndeterminate)
	require.Equal(t, domain.OrderStatusCreated, got.Status, "cache must stay created until reverify resolves")

	tracker.Wait()
	cached, ok := tracker.Cached("o1")
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusPaid, cached.Status, "reverify must adopt the server-confirmed state")
}

func TestTracker_TransportErrorTreatedAsIndeterminate(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	api.payErr = domain.ErrTransport
	tracker := lifecycle.NewTracker(api,
		lifecycle.WithLogger(loggerForTests()),
		lifecycle.WithReverifyDelay(10*time.Millisecond),
	)

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)

	_, err = tracker.Pay(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrPaymentIndeterminate)
	require.ErrorIs(t, err, domain.ErrTransport)

	tracker.Wait()
	_, gets := api.calls()
	require.Equal(t, 2, gets, "ambiguous transport failure must trigger exactly one reverify")
}

func TestTracker_SecondPayWhileInFlight(t *testing.T) {
	api := newStubAPI()
	api.setOrder(createdOrder("o1"))
	api.payBlock = make(chan struct{})
	api.payStarted = make(chan struct{})
	tracker := lifecycle.NewTracker(api, lifecycle.WithLogger(loggerForTests()))

	_, err := tracker.Load(context.Background(), "o1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := tracker.Pay(context.Background(), "o1")
		done <- err
	}()

	// Ждём, пока первый Pay дойдёт до сетевого вызова.
	select {
	case <-api.payStarted:
	case <-time.After(time.Second):
		t.Fatal("first pay never reached the API")
	}

	_, err = tracker.Pay(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrPayInFlight)

	close(api.payBlock)
	require.NoError(t, <-done)
}
