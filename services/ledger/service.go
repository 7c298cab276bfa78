package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"creditshop/pkg/config"
	"creditshop/pkg/db/option"
	"creditshop/pkg/db/pagination"
	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"
	"creditshop/pkg/repository"
	"creditshop/services/account"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	allowNegative bool

	ledger  repository.Repository[CreditTransaction]
	account repository.Repository[account.Account]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		allowNegative: p.Config != nil && p.Config.Credit.AllowNegativeBalance,

		ledger:  repository.ProvideStore[CreditTransaction](p.DB),
		account: repository.ProvideStore[account.Account](p.DB),
	}
}

// validatePosting rejects zero amounts except for purchases, which record a
// zero debit when the product is free. A purchase never credits.
func validatePosting(p PostingParams) error {
	if p.Amount == 0 && p.Type != TypePurchase {
		return errutil.ValidationFailed("Amount cannot be zero", nil)
	}
	if strings.TrimSpace(p.Reason) == "" {
		return errutil.ValidationFailed("Reason is required", nil)
	}
	if !p.Type.Valid() {
		return errutil.ValidationFailed("Invalid transaction type", nil)
	}
	if p.Type == TypePurchase && p.Amount > 0 {
		return errutil.ValidationFailed("Purchase amount cannot be positive", nil)
	}
	return nil
}

// AdjustCredits issues or revokes credits on behalf of an admin.
func (s *Service) AdjustCredits(ctx context.Context, req AdjustCreditsRequest, actingAdminID string) (*AdjustCreditsResult, error) {
	params := PostingParams{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Type:       req.Type,
		Reason:     req.Reason,
	}
	if actingAdminID != "" {
		params.CreatedByUserID = &actingAdminID
	}

	if err := validatePosting(params); err != nil {
		return nil, err
	}
	if req.Type != TypeReward && req.Type != TypeAdjustment {
		return nil, errutil.ValidationFailed("Type must be REWARD or ADJUSTMENT", nil)
	}

	var result AdjustCreditsResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, acc, err := s.Post(ctx, tx, params)
		if err != nil {
			return err
		}
		result = AdjustCreditsResult{Customer: acc, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("credits adjusted",
		zap.String("customer_id", req.CustomerID),
		zap.Int64("amount", req.Amount),
		zap.String("type", string(req.Type)),
		zap.Int64("balance", result.Customer.CreditBalance),
	)

	return &result, nil
}

// Post appends one transaction and moves the balance by the same amount on
// the caller's transaction, so both commit or roll back with whatever else
// the caller writes. It is the only code path that changes credit_balance.
func (s *Service) Post(ctx context.Context, tx *gorm.DB, p PostingParams) (*CreditTransaction, *account.Account, error) {
	if err := validatePosting(p); err != nil {
		return nil, nil, err
	}

	zapLog := logger.FromContext(ctx).With(zap.String("customer_id", p.CustomerID))

	acc, err := s.lockAccount(ctx, tx, p.CustomerID)
	if err != nil {
		return nil, nil, err
	}

	newBalance := acc.CreditBalance + p.Amount
	if newBalance < 0 {
		if p.Type == TypePurchase {
			return nil, nil, errutil.InsufficientCredits(-p.Amount, acc.CreditBalance)
		}
		if !s.allowNegative {
			return nil, nil, errutil.ValidationFailed("Operation would result in negative balance", nil)
		}
	}

	last, err := s.ledger.WithTrx(tx).FindOne(ctx, &CreditTransaction{CustomerID: p.CustomerID},
		option.WithSortBy(option.QuerySortBy{SortBy: "sequence", OrderBy: "desc"}),
	)
	if err != nil {
		zapLog.Error("failed to read last transaction", zap.Error(err))
		return nil, nil, err
	}

	txn := &CreditTransaction{
		ID:              s.node.Generate().String(),
		CustomerID:      p.CustomerID,
		Sequence:        1,
		Amount:          p.Amount,
		Type:            p.Type,
		Reason:          strings.TrimSpace(p.Reason),
		CreatedByUserID: p.CreatedByUserID,
		RelatedOrderID:  p.RelatedOrderID,
		PreviousHash:    genesisHash,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
	if last != nil {
		txn.Sequence = last.Sequence + 1
		txn.PreviousHash = last.Hash
	}
	if len(p.Metadata) > 0 {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, nil, errutil.ValidationFailed("Invalid metadata", err)
		}
		txn.Metadata = datatypes.JSON(b)
	}
	txn.Hash = txn.GenerateHash()

	if err := s.ledger.WithTrx(tx).Create(ctx, txn); err != nil {
		zapLog.Error("failed to append credit transaction", zap.Error(err))
		return nil, nil, err
	}

	// Guarded on the balance read under lock.
	res := tx.WithContext(ctx).Model(&account.Account{}).
		Where("id = ? AND credit_balance = ?", acc.ID, acc.CreditBalance).
		Updates(map[string]any{
			"credit_balance": gorm.Expr("credit_balance + ?", p.Amount),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		zapLog.Error("failed to update balance", zap.Error(res.Error))
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		zapLog.Warn("balance changed between read and write")
		return nil, nil, errutil.Conflict("Balance changed concurrently, please retry", nil)
	}

	acc.CreditBalance = newBalance
	return txn, acc, nil
}

// lockAccount reads the account row FOR UPDATE. Balance writers and readers
// that must agree with the transaction log go through it.
func (s *Service) lockAccount(ctx context.Context, tx *gorm.DB, customerID string) (*account.Account, error) {
	if customerID == "" {
		return nil, errutil.NotFound("Customer not found", nil)
	}

	acc, err := s.account.WithTrx(tx).FindOne(ctx, &account.Account{ID: customerID}, option.WithLockingUpdate())
	if err != nil {
		logger.FromContext(ctx).Error("failed to lock account", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	if acc == nil {
		return nil, errutil.NotFound("Customer not found", nil)
	}
	return acc, nil
}

// GetCustomerCreditHistory returns the customer's transactions oldest first,
// each with the balance right after it. Balances are walked back from the
// current balance under the account lock.
func (s *Service) GetCustomerCreditHistory(ctx context.Context, customerID string) ([]HistoryEntry, error) {
	var history []HistoryEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := s.lockAccount(ctx, tx, customerID)
		if err != nil {
			return err
		}

		txns, err := s.ledger.WithTrx(tx).Find(ctx, &CreditTransaction{CustomerID: customerID},
			option.WithSortBy(option.QuerySortBy{SortBy: "sequence", OrderBy: "desc"}),
		)
		if err != nil {
			return err
		}

		history = make([]HistoryEntry, len(txns))
		running := acc.CreditBalance
		for i, t := range txns {
			history[len(txns)-1-i] = HistoryEntry{CreditTransaction: *t, BalanceAfter: running}
			running -= t.Amount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

// ValidateCreditBalance compares the stored balance with the sum of the
// customer's transactions. A mismatch is reported, not returned as an error.
func (s *Service) ValidateCreditBalance(ctx context.Context, customerID string) (*BalanceValidation, error) {
	var out BalanceValidation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := s.lockAccount(ctx, tx, customerID)
		if err != nil {
			return err
		}

		sum, err := sumAmounts(tx.WithContext(ctx).Where("customer_id = ?", customerID))
		if err != nil {
			return err
		}

		out = BalanceValidation{
			IsValid:           acc.CreditBalance == sum,
			ActualBalance:     acc.CreditBalance,
			CalculatedBalance: sum,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !out.IsValid {
		logger.FromContext(ctx).Warn("credit balance mismatch",
			zap.String("customer_id", customerID),
			zap.Int64("actual", out.ActualBalance),
			zap.Int64("calculated", out.CalculatedBalance),
		)
	}

	return &out, nil
}

func sumAmounts(q *gorm.DB) (int64, error) {
	var sum int64
	err := q.Model(&CreditTransaction{}).Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

func (s *Service) GetCreditStatistics(ctx context.Context) (*CreditStatistics, error) {
	var stats CreditStatistics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issued, err := sumAmounts(s.db.WithContext(gctx).Where("amount > ?", 0))
		stats.TotalCreditsIssued = issued
		return err
	})
	g.Go(func() error {
		spent, err := sumAmounts(s.db.WithContext(gctx).Where("amount < ?", 0))
		stats.TotalCreditsSpent = -spent
		return err
	})
	g.Go(func() error {
		n, err := s.account.Count(gctx, &account.Account{Role: account.RoleCustomer})
		stats.TotalCustomers = n
		return err
	})

	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Error("failed to aggregate credit statistics", zap.Error(err))
		return nil, err
	}

	return &stats, nil
}

// ListTransactions searches transactions newest first.
func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter) (*TransactionPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, errutil.ValidationFailed("Invalid transaction type", nil)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var conds []option.Condition
	if f.StartDate != nil {
		conds = append(conds, option.Condition{Field: "created_at", Operator: option.GTE, Value: f.StartDate.UTC()})
	}
	if f.EndDate != nil {
		conds = append(conds, option.Condition{Field: "created_at", Operator: option.LTE, Value: f.EndDate.UTC()})
	}

	opts := []option.QueryOption{
		option.ApplyOperator(conds...),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
		option.WithLimit(limit + 1),
	}
	if f.Cursor != "" {
		cursor, err := pagination.DecodeCursor(f.Cursor)
		if err != nil {
			return nil, errutil.ValidationFailed("Invalid cursor", err)
		}
		opts = append(opts, before(cursor))
	} else {
		opts = append(opts, option.WithOffset(f.Offset))
	}

	txns, err := s.ledger.Find(ctx, &CreditTransaction{CustomerID: f.CustomerID, Type: f.Type}, opts...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list credit transactions", zap.Error(err))
		return nil, err
	}

	txns, info, err := pagination.Trim(txns, limit, func(t *CreditTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	if err != nil {
		return nil, err
	}

	return &TransactionPage{Transactions: txns, PageInfo: info}, nil
}

// before restricts a newest-first query to rows strictly older than c.
func before(c *pagination.Cursor) option.QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		at := c.CreatedAt.UTC()
		return db.Where("created_at < ? OR (created_at = ? AND id < ?)", at, at, c.ID)
	}
}

// VerifyChain recomputes every hash of the customer's transactions and checks
// that each one links to its predecessor.
func (s *Service) VerifyChain(ctx context.Context, customerID string) (*ChainVerification, error) {
	if customerID == "" {
		return nil, errutil.NotFound("Customer not found", nil)
	}

	txns, err := s.ledger.Find(ctx, &CreditTransaction{CustomerID: customerID},
		option.WithSortBy(option.QuerySortBy{SortBy: "sequence", OrderBy: "asc"}),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load transactions", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	return verifyChain(txns), nil
}

func verifyChain(txns []*CreditTransaction) *ChainVerification {
	out := &ChainVerification{Valid: true}
	prev := genesisHash
	for i, t := range txns {
		if t.Sequence != int64(i+1) || t.PreviousHash != prev || t.Hash != t.GenerateHash() {
			out.Valid = false
			out.BrokenAt = t.ID
			return out
		}
		prev = t.Hash
		out.Checked++
	}
	return out
}
