package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"creditshop/pkg/config"
	"creditshop/pkg/db/option"
	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"
	"creditshop/pkg/rediskey"
	"creditshop/pkg/task"
	"creditshop/pkg/taskname"
	"creditshop/services/account"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReconcileBatch = 250
	reconcileConcurrency  = 4
	reportTTL             = 7 * 24 * time.Hour
)

type ReconcilePayload struct {
	RunID string `json:"runId"`
}

type Mismatch struct {
	CustomerID        string `json:"customerId"`
	ActualBalance     int64  `json:"actualBalance"`
	CalculatedBalance int64  `json:"calculatedBalance"`
}

type ReconcileReport struct {
	RunID      string     `json:"runId"`
	Checked    int        `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// Reconciler validates every customer's balance against their transactions.
// Reports are kept in redis when a client is available.
type Reconciler struct {
	svc       *Service
	rdb       *redis.Client
	batchSize int
}

type ReconcilerParams struct {
	fx.In
	Service *Service
	Config  *config.Config
	Redis   *redis.Client `optional:"true"`
}

func NewReconciler(p ReconcilerParams) *Reconciler {
	size := defaultReconcileBatch
	if p.Config != nil && p.Config.Credit.ReconcileBatchSize > 0 {
		size = p.Config.Credit.ReconcileBatchSize
	}
	return &Reconciler{svc: p.Service, rdb: p.Redis, batchSize: size}
}

func (r *Reconciler) Reconcile(ctx context.Context, runID string) (*ReconcileReport, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("run_id", runID))

	report := &ReconcileReport{
		RunID:      runID,
		Mismatches: []Mismatch{},
		StartedAt:  time.Now().UTC(),
	}

	var mu sync.Mutex
	for offset := 0; ; offset += r.batchSize {
		customers, err := r.svc.account.Find(ctx, &account.Account{Role: account.RoleCustomer},
			option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "asc"}),
			option.WithLimit(r.batchSize),
			option.WithOffset(offset),
		)
		if err != nil {
			zapLog.Error("failed to load customers", zap.Int("offset", offset), zap.Error(err))
			return nil, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reconcileConcurrency)
		for _, c := range customers {
			customerID := c.ID
			g.Go(func() error {
				res, err := r.svc.ValidateCreditBalance(gctx, customerID)
				if errutil.Is(err, errutil.StatusNotFound) {
					return nil
				}
				if err != nil {
					return err
				}

				mu.Lock()
				defer mu.Unlock()
				report.Checked++
				if !res.IsValid {
					report.Mismatches = append(report.Mismatches, Mismatch{
						CustomerID:        customerID,
						ActualBalance:     res.ActualBalance,
						CalculatedBalance: res.CalculatedBalance,
					})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			zapLog.Error("reconcile batch failed", zap.Int("offset", offset), zap.Error(err))
			return nil, err
		}

		if len(customers) < r.batchSize {
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	zapLog.Info("reconcile finished",
		zap.Int("checked", report.Checked),
		zap.Int("mismatches", len(report.Mismatches)),
	)

	if err := r.saveReport(ctx, report); err != nil {
		zapLog.Warn("failed to store reconcile report", zap.Error(err))
	}

	return report, nil
}

func (r *Reconciler) saveReport(ctx context.Context, report *ReconcileReport) error {
	if r.rdb == nil {
		return nil
	}
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, rediskey.BuildReconcileReportKey(report.RunID), b, reportTTL).Err()
}

func (r *Reconciler) GetReport(ctx context.Context, runID string) (*ReconcileReport, error) {
	if r.rdb == nil {
		return nil, errutil.NotFound("Reconcile report not found", nil)
	}

	b, err := r.rdb.Get(ctx, rediskey.BuildReconcileReportKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errutil.NotFound("Reconcile report not found", nil)
	}
	if err != nil {
		return nil, err
	}

	var report ReconcileReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ProcessTask runs a reconcile requested through the queue.
func (r *Reconciler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ReconcilePayload
	if err := task.DecodePayload(t, &p); err != nil {
		return err
	}
	if p.RunID == "" {
		p.RunID = r.svc.node.Generate().String()
	}

	_, err := r.Reconcile(ctx, p.RunID)
	return err
}

func NewReconcileHandler(r *Reconciler) task.Handler {
	return task.Handler{Pattern: taskname.LedgerReconcile, Handler: r}
}

// NewReconcileTask builds the queue message for a reconcile run.
func NewReconcileTask(runID string) (*asynq.Task, error) {
	return task.NewJSONTask(taskname.LedgerReconcile, ReconcilePayload{RunID: runID},
		asynq.Queue(taskname.QueueLow),
		asynq.MaxRetry(3),
		asynq.Unique(time.Minute),
	)
}
