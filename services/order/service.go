package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"creditshop/pkg/config"
	"creditshop/pkg/db/option"
	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"
	"creditshop/pkg/repository"
	"creditshop/pkg/sequence"
	"creditshop/pkg/task"
	"creditshop/pkg/taskname"
	"creditshop/services/account"
	"creditshop/services/address"
	"creditshop/services/catalog"
	"creditshop/services/ledger"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultListLimit   = 50
	defaultRecentLimit = 5
)

// CreditPoster debits the customer on the order's transaction.
type CreditPoster interface {
	Post(ctx context.Context, tx *gorm.DB, p ledger.PostingParams) (*ledger.CreditTransaction, *account.Account, error)
}

// AddressResolver returns the shipping snapshot of an address the customer owns.
type AddressResolver interface {
	Resolve(ctx context.Context, userID, addressID string) (*address.ShippingSnapshot, error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	credits   CreditPoster
	addresses AddressResolver
	codes     sequence.Generator
	enqueuer  task.Enqueuer

	defaultLimit int
	recentLimit  int

	order   repository.Repository[Order]
	item    repository.Repository[OrderItem]
	product repository.Repository[catalog.Product]
	account repository.Repository[account.Account]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Config    *config.Config
	Ledger    *ledger.Service
	Addresses *address.Service
	Codes     sequence.Generator `optional:"true"`
	Enqueuer  task.Enqueuer      `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	svc := &Service{
		db:           p.DB,
		node:         p.Node,
		credits:      p.Ledger,
		addresses:    p.Addresses,
		codes:        p.Codes,
		enqueuer:     p.Enqueuer,
		defaultLimit: defaultListLimit,
		recentLimit:  defaultRecentLimit,

		order:   repository.ProvideStore[Order](p.DB),
		item:    repository.ProvideStore[OrderItem](p.DB),
		product: repository.ProvideStore[catalog.Product](p.DB),
		account: repository.ProvideStore[account.Account](p.DB),
	}
	if p.Config != nil {
		if p.Config.Order.DefaultLimit > 0 {
			svc.defaultLimit = p.Config.Order.DefaultLimit
		}
		if p.Config.Order.RecentLimit > 0 {
			svc.recentLimit = p.Config.Order.RecentLimit
		}
	}
	return svc
}

func (s *Service) resolveShipping(ctx context.Context, customerID string, req CreateOrderRequest) (address.ShippingSnapshot, error) {
	if req.ShippingAddressID != "" {
		snap, err := s.addresses.Resolve(ctx, customerID, req.ShippingAddressID)
		if err != nil {
			return address.ShippingSnapshot{}, err
		}
		return *snap, nil
	}

	if req.ShippingAddress == nil {
		return address.ShippingSnapshot{}, errutil.ValidationFailed("Shipping address is required", nil)
	}

	snap := *req.ShippingAddress
	snap.Name = strings.TrimSpace(snap.Name)
	snap.AddressLine1 = strings.TrimSpace(snap.AddressLine1)
	snap.City = strings.TrimSpace(snap.City)
	snap.PostalCode = strings.TrimSpace(snap.PostalCode)
	snap.Country = strings.TrimSpace(snap.Country)
	if err := snap.Validate(); err != nil {
		return address.ShippingSnapshot{}, err
	}
	return snap, nil
}

// CreateOrder redeems a product for credits. The order, its item, the
// PURCHASE debit and the stock decrement are written in one transaction.
func (s *Service) CreateOrder(ctx context.Context, customerID string, req CreateOrderRequest) (*Order, error) {
	zapLog := logger.FromContext(ctx).With(
		zap.String("customer_id", customerID),
		zap.String("product_id", req.ProductID),
	)

	quantity := int64(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return nil, errutil.ValidationFailed("Quantity must be at least 1", nil)
	}

	shipping, err := s.resolveShipping(ctx, customerID, req)
	if err != nil {
		return nil, err
	}

	product, err := s.findProduct(ctx, req.ProductID)
	if err != nil {
		zapLog.Error("failed to load product", zap.Error(err))
		return nil, err
	}
	if product == nil {
		return nil, errutil.NotFound("Product not found", nil)
	}
	if !product.IsActive {
		return nil, errutil.ValidationFailed("This product is not available", nil)
	}
	if !product.InStock(quantity) {
		return nil, errutil.ValidationFailed("Insufficient stock available", nil)
	}
	if product.PriceInCredits > 0 && quantity > math.MaxInt64/product.PriceInCredits {
		return nil, errutil.ValidationFailed("Quantity is too large", nil)
	}

	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		zapLog.Error("failed to load customer", zap.Error(err))
		return nil, err
	}
	if customer == nil {
		return nil, errutil.NotFound("Customer not found", nil)
	}

	total := product.PriceInCredits * quantity
	if customer.CreditBalance < total {
		return nil, errutil.InsufficientCredits(total, customer.CreditBalance)
	}

	orderID := s.node.Generate()
	code := s.nextCode(ctx, orderID)

	o := &Order{
		ID:           orderID.String(),
		Code:         code,
		CustomerID:   customerID,
		TotalCredits: total,
		Status:       StatusPending,
		IsGift:       req.IsGift,
	}
	o.applySnapshot(shipping)
	if msg := strings.TrimSpace(req.GiftMessage); msg != "" {
		o.GiftMessage = &msg
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.order.WithTrx(tx).Create(ctx, o); err != nil {
			return err
		}

		item := &OrderItem{
			ID:                       s.node.Generate().String(),
			OrderID:                  o.ID,
			ProductID:                product.ID,
			Quantity:                 quantity,
			PriceInCreditsAtPurchase: product.PriceInCredits,
		}
		if err := s.item.WithTrx(tx).Create(ctx, item); err != nil {
			return err
		}

		if _, _, err := s.credits.Post(ctx, tx, ledger.PostingParams{
			CustomerID:     customerID,
			Amount:         -total,
			Type:           ledger.TypePurchase,
			Reason:         fmt.Sprintf("Purchase: %dx %s", quantity, product.Name),
			RelatedOrderID: &o.ID,
		}); err != nil {
			return err
		}

		if product.Stock != nil {
			if err := decrementStock(ctx, tx, product.ID, quantity); err != nil {
				return err
			}
		}

		created, err := s.order.WithTrx(tx).FindOne(ctx, &Order{ID: o.ID}, option.WithPreload("Items.Product"))
		if err != nil {
			return err
		}
		o = created
		return nil
	})
	if err != nil {
		zapLog.Warn("order rolled back", zap.Error(err))
		return nil, err
	}

	zapLog.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("code", o.Code),
		zap.Int64("quantity", quantity),
		zap.Int64("total_credits", total),
	)

	s.publishCreated(ctx, o)

	return o, nil
}

// Lookups by empty id would match any row through the zero-value query struct.
func (s *Service) findProduct(ctx context.Context, id string) (*catalog.Product, error) {
	if id == "" {
		return nil, nil
	}
	return s.product.FindOne(ctx, &catalog.Product{ID: id})
}

func (s *Service) findCustomer(ctx context.Context, id string) (*account.Account, error) {
	if id == "" {
		return nil, nil
	}
	return s.account.FindOne(ctx, &account.Account{ID: id})
}

// decrementStock re-checks stock in the same statement that takes it, so two
// purchases racing for the last unit cannot both succeed.
func decrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int64) error {
	res := tx.WithContext(ctx).Model(&catalog.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", productID, quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.ValidationFailed("Insufficient stock available", nil)
	}
	return nil
}

// nextCode falls back to an id derived code when the daily counter is down.
func (s *Service) nextCode(ctx context.Context, id snowflake.ID) string {
	if s.codes != nil {
		code, err := s.codes.NextOrderCode(ctx)
		if err == nil {
			return code
		}
		logger.FromContext(ctx).Warn("order code sequence unavailable", zap.Error(err))
	}
	return "ORD-" + strings.ToUpper(id.Base36())
}

func (s *Service) publishCreated(ctx context.Context, o *Order) {
	if s.enqueuer == nil {
		return
	}

	t, err := task.NewJSONTask(taskname.OrderCreated, CreatedPayload{OrderID: o.ID, CustomerID: o.CustomerID},
		asynq.Queue(taskname.QueueDefault),
		asynq.MaxRetry(5),
	)
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, t)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to publish order created", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// UpdateOrderStatus moves an order through fulfilment. shippedAt and
// deliveredAt are set the first time their status is reached.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status Status, trackingNumber string) (*Order, error) {
	if !status.Valid() {
		return nil, errutil.ValidationFailed("Invalid order status", nil)
	}

	if orderID == "" {
		return nil, errutil.NotFound("Order not found", nil)
	}

	var updated *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.order.WithTrx(tx).FindOne(ctx, &Order{ID: orderID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if o == nil {
			return errutil.NotFound("Order not found", nil)
		}
		if o.Status.Terminal() && o.Status != status {
			return errutil.ValidationFailed(fmt.Sprintf("Cannot change status of a %s order", strings.ToLower(string(o.Status))), nil)
		}

		now := time.Now().UTC()
		fields := map[string]any{
			"status":     status,
			"updated_at": now,
		}
		if tn := strings.TrimSpace(trackingNumber); tn != "" {
			fields["tracking_number"] = tn
		}
		if status == StatusShipped && o.ShippedAt == nil {
			fields["shipped_at"] = now
		}
		if status == StatusDelivered && o.DeliveredAt == nil {
			fields["delivered_at"] = now
		}

		if err := s.order.WithTrx(tx).Update(ctx, o.ID, fields); err != nil {
			return err
		}

		updated, err = s.order.WithTrx(tx).FindOne(ctx, &Order{ID: o.ID}, option.WithPreload("Items.Product"))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
	)

	if err := s.attachCustomers(ctx, []*Order{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) GetCustomerOrders(ctx context.Context, customerID string) ([]*Order, error) {
	return s.order.Find(ctx, &Order{CustomerID: customerID},
		option.WithPreload("Items.Product"),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}

func (s *Service) GetAllOrders(ctx context.Context, limit, offset int) ([]*Order, error) {
	res, err := s.GetOrdersWithFilters(ctx, OrderFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return res.Orders, nil
}

func (s *Service) GetOrderByID(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, errutil.NotFound("Order not found", nil)
	}

	o, err := s.order.FindOne(ctx, &Order{ID: orderID}, option.WithPreload("Items.Product"))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errutil.NotFound("Order not found", nil)
	}
	if err := s.attachCustomers(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetOrdersWithFilters(ctx context.Context, f OrderFilter) (*OrderList, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, errutil.ValidationFailed("Invalid order status", nil)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	query := &Order{Status: f.Status, CustomerID: f.CustomerID}
	out := &OrderList{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.order.Find(gctx, query,
			option.WithPreload("Items.Product"),
			option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
			option.WithLimit(limit),
			option.WithOffset(f.Offset),
		)
		out.Orders = orders
		return err
	})
	g.Go(func() error {
		n, err := s.order.Count(gctx, query)
		out.Total = n
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Error("failed to list orders", zap.Error(err))
		return nil, err
	}

	if err := s.attachCustomers(ctx, out.Orders); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetOrderStatistics(ctx context.Context) (*Statistics, error) {
	res, err := s.GetOrdersWithFilters(ctx, OrderFilter{Limit: s.recentLimit})
	if err != nil {
		return nil, err
	}
	return &Statistics{TotalOrders: res.Total, RecentOrders: res.Orders}, nil
}

// attachCustomers fills the id, name and email of each order's customer.
func (s *Service) attachCustomers(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.CustomerID)
	}

	var customers []CustomerSummary
	err := s.db.WithContext(ctx).Model(&account.Account{}).
		Select("id", "name", "email").
		Where("id IN ?", ids).
		Find(&customers).Error
	if err != nil {
		return err
	}

	byID := make(map[string]*CustomerSummary, len(customers))
	for i := range customers {
		byID[customers[i].ID] = &customers[i]
	}
	for _, o := range orders {
		o.Customer = byID[o.CustomerID]
	}
	return nil
}
