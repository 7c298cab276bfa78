package task

import (
	"context"

	"creditshop/pkg/config"
	"creditshop/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("asynq:client",
	fx.Provide(registerClient, NewEnqueuer),
)

func registerClient(lc fx.Lifecycle, rdb *redis.Client) *asynq.Client {
	client := asynq.NewClientFromRedisClient(rdb)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

// Handler binds a task type to the code that processes it. Services contribute
// handlers to the "task_handlers" group.
type Handler struct {
	Pattern string
	Handler asynq.Handler
}

// AsHandler annotates a constructor returning Handler for the worker group.
func AsHandler(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"task_handlers"`))
}

var Server = fx.Module("asynq:server",
	fx.Provide(registerServerMux),
	fx.Invoke(registerAsynqServer),
)

type muxParams struct {
	fx.In
	Handlers []Handler `group:"task_handlers"`
}

func registerServerMux(p muxParams) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, h := range p.Handlers {
		zap.L().Info("[Asynq] register task handler", zap.String("task_type", h.Pattern))
		mux.Handle(h.Pattern, h.Handler)
	}
	return mux
}

func registerAsynqServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency:    10,
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
			Queues: map[string]int{
				taskname.QueueCritical: 6,
				taskname.QueueDefault:  3,
				taskname.QueueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.L().Error("asynq task failed", zap.String("task_type", task.Type()), zap.Error(err))
			}),
		},
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				zap.L().Error("[Asynq] Failed to start Asynq server", zap.Error(err))
				return err
			}
			zap.L().Info("[Asynq] Asynq server started", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}
