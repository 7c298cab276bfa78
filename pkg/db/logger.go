package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creditshop/pkg/config"
	"creditshop/pkg/logger"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// QueryLogger routes gorm logs through zap. Every entry carries the trace and
// span ids of the request that issued the query, so a slow ledger write can be
// found from its trace.
type QueryLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
	ShowSQL       bool
}

// NewQueryLogger logs every statement outside production and only warnings
// and errors in production.
func NewQueryLogger(cfg *config.Config) *QueryLogger {
	l := &QueryLogger{
		SlowThreshold: defaultSlowQueryThreshold,
		LogLevel:      gormlogger.Info,
		ShowSQL:       true,
	}
	if cfg == nil {
		return l
	}

	if cfg.AppEnv == "production" {
		l.LogLevel = gormlogger.Warn
		l.ShowSQL = false
	}
	if cfg.Database.SlowQueryThreshold > 0 {
		l.SlowThreshold = cfg.Database.SlowQueryThreshold
	}
	return l
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.LogLevel = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.FromContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.FromContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.FromContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed and slow statements. Record-not-found is an expected
// outcome of FindOne and is never logged as an error.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("file", utils.FileWithLineNum()),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	log := logger.FromContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.LogLevel >= gormlogger.Error:
		log.Error("gorm.query", append(fields, zap.Error(err))...)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		log.Warn("gorm.slow_query", append(fields, zap.Duration("threshold", l.SlowThreshold))...)
	case l.LogLevel >= gormlogger.Info && l.ShowSQL:
		log.Info("gorm.query", fields...)
	}
}
