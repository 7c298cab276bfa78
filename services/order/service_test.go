package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"creditshop/pkg/config"
	"creditshop/pkg/errutil"
	"creditshop/pkg/taskname"
	"creditshop/services/account"
	"creditshop/services/address"
	"creditshop/services/catalog"
	"creditshop/services/ledger"
	"creditshop/services/testutil"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeCodes struct {
	n   atomic.Int64
	err error
}

func (f *fakeCodes) NextOrderCode(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("ORD-TEST-%03d", f.n.Add(1)), nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks)), Type: t.Type()}, nil
}

// failingPoster debits through the real ledger and then fails, as if the
// database dropped the transaction half way.
type failingPoster struct {
	inner CreditPoster
	err   error
}

func (f *failingPoster) Post(ctx context.Context, tx *gorm.DB, p ledger.PostingParams) (*ledger.CreditTransaction, *account.Account, error) {
	if _, _, err := f.inner.Post(ctx, tx, p); err != nil {
		return nil, nil, err
	}
	return nil, nil, f.err
}

// stockDrain empties the product's stock on the order's transaction right
// before the debit, so only the in-transaction stock re-check can catch it.
type stockDrain struct {
	inner     CreditPoster
	productID string
}

func (d *stockDrain) Post(ctx context.Context, tx *gorm.DB, p ledger.PostingParams) (*ledger.CreditTransaction, *account.Account, error) {
	if err := tx.Model(&catalog.Product{}).Where("id = ?", d.productID).Update("stock", 0).Error; err != nil {
		return nil, nil, err
	}
	return d.inner.Post(ctx, tx, p)
}

type testEnv struct {
	db        *gorm.DB
	svc       *Service
	ledger    *ledger.Service
	addresses *address.Service
	codes     *fakeCodes
	enqueuer  *fakeEnqueuer
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&account.Account{},
		&ledger.CreditTransaction{},
		&catalog.Product{},
		&address.Address{},
		&Order{},
		&OrderItem{},
	)
	if cfg == nil {
		cfg = &config.Config{}
	}
	node := testutil.NewNode(t)

	env := &testEnv{
		db:        db,
		ledger:    ledger.NewService(ledger.ServiceParams{DB: db, Node: node, Config: cfg}),
		addresses: address.NewService(address.ServiceParams{DB: db, Node: node}),
		codes:     &fakeCodes{},
		enqueuer:  &fakeEnqueuer{},
	}
	env.svc = NewService(ServiceParams{
		DB:        db,
		Node:      node,
		Config:    cfg,
		Ledger:    env.ledger,
		Addresses: env.addresses,
		Codes:     env.codes,
		Enqueuer:  env.enqueuer,
	})
	return env
}

func (e *testEnv) customer(t *testing.T, id string, credits int64) *account.Account {
	t.Helper()

	acc := &account.Account{ID: id, Email: id + "@example.com", Name: strings.ToUpper(id), PasswordHash: "x", Role: account.RoleCustomer}
	require.NoError(t, e.db.Create(acc).Error)
	if credits != 0 {
		_, err := e.ledger.AdjustCredits(context.Background(), ledger.AdjustCreditsRequest{
			CustomerID: id, Amount: credits, Type: ledger.TypeReward, Reason: "Opening balance",
		}, "")
		require.NoError(t, err)
	}
	return acc
}

func (e *testEnv) product(t *testing.T, id string, price int64, stock *int64, active bool) *catalog.Product {
	t.Helper()

	p := &catalog.Product{ID: id, Name: "Product " + id, Slug: id, PriceInCredits: price, Stock: stock, IsActive: true}
	require.NoError(t, e.db.Create(p).Error)
	if !active {
		require.NoError(t, e.db.Model(p).Update("is_active", false).Error)
		p.IsActive = false
	}
	return p
}

func (e *testEnv) address(t *testing.T, userID string) *address.Address {
	t.Helper()

	a, err := e.addresses.CreateAddress(context.Background(), userID, address.CreateAddressRequest{
		ShippingSnapshot: address.ShippingSnapshot{
			Name: "Jane Doe", AddressLine1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		IsDefault: true,
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) balance(t *testing.T, id string) int64 {
	t.Helper()

	var acc account.Account
	require.NoError(t, e.db.First(&acc, "id = ?", id).Error)
	return acc.CreditBalance
}

func (e *testEnv) stock(t *testing.T, id string) *int64 {
	t.Helper()

	var p catalog.Product
	require.NoError(t, e.db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func int64Ptr(v int64) *int64 { return &v }

func inlineAddress() *address.ShippingSnapshot {
	return &address.ShippingSnapshot{Name: "Gift Receiver", AddressLine1: "9 Elm St", City: "Shelbyville", PostalCode: "54321", Country: "US"}
}

func requireMessage(t *testing.T, err error, status errutil.CoreStatus, msg string) {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, status, be.Status())
	require.Equal(t, msg, be.Message)
}

func TestCreateOrderDebitsCreditsAndStock(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	addr := env.address(t, "cust-1")
	env.product(t, "prod-1", 100, int64Ptr(10), true)

	o, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{
		ProductID:         "prod-1",
		ShippingAddressID: addr.ID,
		IsGift:            true,
		GiftMessage:       "Happy birthday",
	})
	require.NoError(t, err)

	require.Equal(t, int64(100), o.TotalCredits)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, "ORD-TEST-001", o.Code)
	require.Equal(t, "Jane Doe", o.ShippingName)
	require.Equal(t, "Springfield", o.ShippingCity)
	require.True(t, o.IsGift)
	require.Equal(t, "Happy birthday", *o.GiftMessage)
	require.Len(t, o.Items, 1)
	require.Equal(t, int64(1), o.Items[0].Quantity)
	require.Equal(t, int64(100), o.Items[0].PriceInCreditsAtPurchase)
	require.NotNil(t, o.Items[0].Product)
	require.Equal(t, "prod-1", o.Items[0].Product.ID)

	require.Equal(t, int64(300), env.balance(t, "cust-1"))
	require.Equal(t, int64(9), *env.stock(t, "prod-1"))

	var debits []ledger.CreditTransaction
	require.NoError(t, env.db.Where("type = ?", ledger.TypePurchase).Find(&debits).Error)
	require.Len(t, debits, 1)
	require.Equal(t, int64(-100), debits[0].Amount)
	require.Equal(t, o.ID, *debits[0].RelatedOrderID)
	require.Equal(t, "Purchase: 1x Product prod-1", debits[0].Reason)
	require.Nil(t, debits[0].CreatedByUserID)

	check, err := env.ledger.ValidateCreditBalance(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, check.IsValid)

	require.Len(t, env.enqueuer.tasks, 1)
	require.Equal(t, taskname.OrderCreated, env.enqueuer.tasks[0].Type())
}

func TestCreateOrderInsufficientCredits(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, int64Ptr(10), true)

	_, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	require.NoError(t, err)

	_, err = env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", Quantity: int64Ptr(10), ShippingAddress: inlineAddress()})

	var ice *errutil.InsufficientCreditsError
	require.True(t, errors.As(err, &ice))
	require.Equal(t, int64(1000), ice.Required)
	require.Equal(t, int64(300), ice.Available)
	require.Equal(t, "Not enough credits to redeem this product. Required: 1000, Available: 300", err.Error())

	require.Equal(t, int64(300), env.balance(t, "cust-1"))
	require.Equal(t, int64(9), *env.stock(t, "prod-1"))
	require.Equal(t, int64(1), env.count(t, &Order{}))
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, int64Ptr(10), false)

	_, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	requireMessage(t, err, errutil.StatusValidationFailed, "This product is not available")

	require.Equal(t, int64(400), env.balance(t, "cust-1"))
	require.Equal(t, int64(10), *env.stock(t, "prod-1"))
	require.Equal(t, int64(0), env.count(t, &Order{}))
	require.Empty(t, env.enqueuer.tasks)
}

func TestCreateOrderValidationOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 1000)
	env.customer(t, "cust-2", 0)
	other := env.address(t, "cust-2")
	env.product(t, "prod-1", 100, int64Ptr(2), true)
	env.product(t, "off", 100, nil, false)

	tests := []struct {
		name       string
		customerID string
		req        CreateOrderRequest
		status     errutil.CoreStatus
		msg        string
	}{
		{"zero quantity before anything else", "ghost", CreateOrderRequest{ProductID: "missing", Quantity: int64Ptr(0)}, errutil.StatusValidationFailed, "Quantity must be at least 1"},
		{"missing shipping", "cust-1", CreateOrderRequest{ProductID: "prod-1"}, errutil.StatusValidationFailed, "Shipping address is required"},
		{"foreign address", "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddressID: other.ID}, errutil.StatusNotFound, "Shipping address not found"},
		{"incomplete inline address", "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: &address.ShippingSnapshot{Name: "X", AddressLine1: "Y", PostalCode: "1", Country: "US"}}, errutil.StatusValidationFailed, "City is required"},
		{"unknown product", "cust-1", CreateOrderRequest{ProductID: "missing", ShippingAddress: inlineAddress()}, errutil.StatusNotFound, "Product not found"},
		{"inactive before stock", "cust-1", CreateOrderRequest{ProductID: "off", Quantity: int64Ptr(99), ShippingAddress: inlineAddress()}, errutil.StatusValidationFailed, "This product is not available"},
		{"not enough stock", "cust-1", CreateOrderRequest{ProductID: "prod-1", Quantity: int64Ptr(3), ShippingAddress: inlineAddress()}, errutil.StatusValidationFailed, "Insufficient stock available"},
		{"unknown customer", "ghost", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()}, errutil.StatusNotFound, "Customer not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateOrder(ctx, tt.customerID, tt.req)
			requireMessage(t, err, tt.status, tt.msg)
		})
	}

	require.Equal(t, int64(0), env.count(t, &Order{}))
	require.Equal(t, int64(1000), env.balance(t, "cust-1"))
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, int64Ptr(10), true)

	boom := errors.New("connection lost")
	env.svc.credits = &failingPoster{inner: env.ledger, err: boom}

	_, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "prod-1", Quantity: int64Ptr(2), ShippingAddress: inlineAddress()})
	require.ErrorIs(t, err, boom)

	require.Equal(t, int64(0), env.count(t, &Order{}))
	require.Equal(t, int64(0), env.count(t, &OrderItem{}))
	require.Equal(t, int64(1), env.count(t, &ledger.CreditTransaction{}))
	require.Equal(t, int64(400), env.balance(t, "cust-1"))
	require.Equal(t, int64(10), *env.stock(t, "prod-1"))
	require.Empty(t, env.enqueuer.tasks)
}

func TestCreateOrderUnlimitedStock(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 500)
	env.product(t, "gift-card", 50, nil, true)

	o, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "gift-card", Quantity: int64Ptr(4), ShippingAddress: inlineAddress()})
	require.NoError(t, err)
	require.Equal(t, int64(200), o.TotalCredits)
	require.Nil(t, env.stock(t, "gift-card"))
	require.Equal(t, int64(300), env.balance(t, "cust-1"))
}

func TestCreateOrderNoOversell(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.product(t, "last-one", 100, int64Ptr(1), true)

	const buyers = 5
	for i := 0; i < buyers; i++ {
		env.customer(t, fmt.Sprintf("cust-%d", i), 100)
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.CreateOrder(ctx, id, CreateOrderRequest{ProductID: "last-one", ShippingAddress: inlineAddress()})
			if err == nil {
				successes.Add(1)
				return
			}
			if !errutil.Is(err, errutil.StatusValidationFailed) {
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("cust-%d", i))
	}
	wg.Wait()

	require.Equal(t, int64(1), successes.Load())
	require.Equal(t, int64(0), *env.stock(t, "last-one"))
	require.Equal(t, int64(1), env.count(t, &Order{}))

	var spent int64
	require.NoError(t, env.db.Model(&ledger.CreditTransaction{}).Where("type = ?", ledger.TypePurchase).Count(&spent).Error)
	require.Equal(t, int64(1), spent)
}

func TestCreateOrderStockTakenInsideTransaction(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, int64Ptr(3), true)
	env.svc.credits = &stockDrain{inner: env.ledger, productID: "prod-1"}

	_, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	requireMessage(t, err, errutil.StatusValidationFailed, "Insufficient stock available")

	require.Equal(t, int64(0), env.count(t, &Order{}))
	require.Equal(t, int64(0), env.count(t, &OrderItem{}))
	require.Equal(t, int64(1), env.count(t, &ledger.CreditTransaction{}))
	require.Equal(t, int64(400), env.balance(t, "cust-1"))
	require.Equal(t, int64(3), *env.stock(t, "prod-1"))
	require.Empty(t, env.enqueuer.tasks)
}

func TestCreateOrderQuantityOverflow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 0)
	env.product(t, "prod-1", 3, nil, true)

	_, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{
		ProductID:       "prod-1",
		Quantity:        int64Ptr(6148914691236517105),
		ShippingAddress: inlineAddress(),
	})
	requireMessage(t, err, errutil.StatusValidationFailed, "Quantity is too large")

	require.Equal(t, int64(0), env.balance(t, "cust-1"))
	require.Equal(t, int64(0), env.count(t, &Order{}))
	require.Equal(t, int64(0), env.count(t, &ledger.CreditTransaction{}))
}

func TestCreateOrderFreeProduct(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 0)
	env.product(t, "prod-free", 0, int64Ptr(5), true)

	o, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "prod-free", Quantity: int64Ptr(2), ShippingAddress: inlineAddress()})
	require.NoError(t, err)
	require.Equal(t, int64(0), o.TotalCredits)
	require.Equal(t, int64(0), env.balance(t, "cust-1"))
	require.Equal(t, int64(3), *env.stock(t, "prod-free"))

	var debits []ledger.CreditTransaction
	require.NoError(t, env.db.Where("related_order_id = ?", o.ID).Find(&debits).Error)
	require.Len(t, debits, 1)
	require.Equal(t, ledger.TypePurchase, debits[0].Type)
	require.Equal(t, int64(0), debits[0].Amount)
}

func TestCreateOrderKeepsPriceSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, int64Ptr(10), true)

	o, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&catalog.Product{}).Where("id = ?", "prod-1").Update("price_in_credits", 999).Error)

	got, err := env.svc.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), got.TotalCredits)
	require.Equal(t, int64(100), got.Items[0].PriceInCreditsAtPurchase)
	require.Equal(t, int64(999), got.Items[0].Product.PriceInCredits)
	require.Equal(t, "Gift Receiver", got.ShippingName)
	require.NotNil(t, got.Customer)
	require.Equal(t, "cust-1@example.com", got.Customer.Email)
}

func TestCreateOrderShippingSnapshotIsFrozen(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	addr := env.address(t, "cust-1")
	env.product(t, "prod-1", 100, nil, true)

	o, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddressID: addr.ID})
	require.NoError(t, err)

	newCity := "Capital City"
	_, err = env.addresses.UpdateAddress(ctx, "cust-1", addr.ID, address.UpdateAddressRequest{City: &newCity})
	require.NoError(t, err)

	got, err := env.svc.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, "Springfield", got.ShippingCity)
}

func TestCreateOrderSurvivesSideChannelFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, nil, true)

	env.codes.err = errors.New("redis down")
	env.enqueuer.err = errors.New("redis down")

	o, err := env.svc.CreateOrder(context.Background(), "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(o.Code, "ORD-"))
	require.NotEqual(t, "ORD-TEST-001", o.Code)
	require.Equal(t, int64(300), env.balance(t, "cust-1"))
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, nil, true)

	o, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	require.NoError(t, err)

	o, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusProcessing, "")
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, o.Status)
	require.Nil(t, o.ShippedAt)

	o, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusShipped, "TRACK-1")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, o.Status)
	require.Equal(t, "TRACK-1", *o.TrackingNumber)
	require.NotNil(t, o.ShippedAt)
	shippedAt := *o.ShippedAt

	o, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusShipped, "")
	require.NoError(t, err)
	require.True(t, shippedAt.Equal(*o.ShippedAt))
	require.Equal(t, "TRACK-1", *o.TrackingNumber)

	o, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusDelivered, "")
	require.NoError(t, err)
	require.NotNil(t, o.DeliveredAt)

	_, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusCancelled, "")
	requireMessage(t, err, errutil.StatusValidationFailed, "Cannot change status of a delivered order")

	_, err = env.svc.UpdateOrderStatus(ctx, o.ID, "LOST", "")
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = env.svc.UpdateOrderStatus(ctx, "missing", StatusShipped, "")
	requireMessage(t, err, errutil.StatusNotFound, "Order not found")
}

func TestCancelledOrderIsTerminal(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.customer(t, "cust-1", 400)
	env.product(t, "prod-1", 100, nil, true)

	o, err := env.svc.CreateOrder(ctx, "cust-1", CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusCancelled, "")
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, o.ID, StatusProcessing, "")
	requireMessage(t, err, errutil.StatusValidationFailed, "Cannot change status of a cancelled order")
}

func TestOrderQueries(t *testing.T) {
	cfg := &config.Config{}
	cfg.Order.RecentLimit = 2
	env := newTestEnv(t, cfg)
	ctx := context.Background()
	env.customer(t, "cust-1", 1000)
	env.customer(t, "cust-2", 1000)
	env.product(t, "prod-1", 100, nil, true)

	var last *Order
	for _, id := range []string{"cust-1", "cust-1", "cust-2"} {
		o, err := env.svc.CreateOrder(ctx, id, CreateOrderRequest{ProductID: "prod-1", ShippingAddress: inlineAddress()})
		require.NoError(t, err)
		last = o
	}
	_, err := env.svc.UpdateOrderStatus(ctx, last.ID, StatusShipped, "")
	require.NoError(t, err)

	mine, err := env.svc.GetCustomerOrders(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		require.Equal(t, "cust-1", o.CustomerID)
		require.Len(t, o.Items, 1)
	}

	all, err := env.svc.GetAllOrders(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	shipped, err := env.svc.GetOrdersWithFilters(ctx, OrderFilter{Status: StatusShipped})
	require.NoError(t, err)
	require.Equal(t, int64(1), shipped.Total)
	require.Equal(t, last.ID, shipped.Orders[0].ID)
	require.Equal(t, "CUST-2", shipped.Orders[0].Customer.Name)

	page, err := env.svc.GetOrdersWithFilters(ctx, OrderFilter{CustomerID: "cust-1", Limit: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Orders, 1)

	_, err = env.svc.GetOrdersWithFilters(ctx, OrderFilter{Status: "LOST"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	stats, err := env.svc.GetOrderStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalOrders)
	require.Len(t, stats.RecentOrders, 2)

	_, err = env.svc.GetOrderByID(ctx, "missing")
	requireMessage(t, err, errutil.StatusNotFound, "Order not found")
}
