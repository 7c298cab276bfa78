package order

import (
	"context"
	"fmt"

	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"
	"creditshop/pkg/repository"
	"creditshop/pkg/task"
	"creditshop/pkg/taskname"
	"creditshop/services/ledger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatedHandler consumes order:created. It audits that the order was paid
// for by exactly its total and logs the confirmation for the customer.
type CreatedHandler struct {
	svc    *Service
	ledger repository.Repository[ledger.CreditTransaction]
}

func NewCreatedHandler(svc *Service, db *gorm.DB) *CreatedHandler {
	return &CreatedHandler{
		svc:    svc,
		ledger: repository.ProvideStore[ledger.CreditTransaction](db),
	}
}

func (h *CreatedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CreatedPayload
	if err := task.DecodePayload(t, &p); err != nil {
		return err
	}

	zapLog := logger.FromContext(ctx).With(zap.String("order_id", p.OrderID))

	o, err := h.svc.GetOrderByID(ctx, p.OrderID)
	if errutil.Is(err, errutil.StatusNotFound) {
		zapLog.Warn("order from event does not exist")
		return fmt.Errorf("order %s: %v: %w", p.OrderID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	debits, err := h.ledger.Find(ctx, &ledger.CreditTransaction{RelatedOrderID: &o.ID, Type: ledger.TypePurchase})
	if err != nil {
		return err
	}

	var paid int64
	for _, d := range debits {
		paid -= d.Amount
	}
	if paid != o.TotalCredits {
		zapLog.Error("order debit mismatch",
			zap.Int64("total_credits", o.TotalCredits),
			zap.Int64("debited", paid),
		)
		return fmt.Errorf("order %s debited %d of %d: %w", o.ID, paid, o.TotalCredits, asynq.SkipRetry)
	}

	fields := []zap.Field{
		zap.String("code", o.Code),
		zap.String("customer_id", o.CustomerID),
		zap.Int64("total_credits", o.TotalCredits),
	}
	if o.Customer != nil {
		fields = append(fields, zap.String("email", o.Customer.Email))
	}
	zapLog.Info("order confirmed", fields...)

	return nil
}

func NewCreatedTaskHandler(h *CreatedHandler) task.Handler {
	return task.Handler{Pattern: taskname.OrderCreated, Handler: h}
}
