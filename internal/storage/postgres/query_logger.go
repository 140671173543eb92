package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type queryTraceKey struct{}

type queryTrace struct {
	start time.Time
	sql   string
}

// QueryLogger implements pgx.QueryTracer and logs statements with zap.
// Statements slower than slowThreshold are logged at warn level. Arguments
// are never logged; the price snapshot travels as arguments.
type QueryLogger struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

func NewQueryLogger(logger *zap.Logger, slowThreshold time.Duration) *QueryLogger {
	return &QueryLogger{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (ql *QueryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{start: time.Now(), sql: data.SQL})
}

func (ql *QueryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	if !ok {
		trace.start = time.Now()
	}
	duration := time.Since(trace.start)

	if data.Err != nil {
		ql.logger.Error("query failed",
			zap.String("sql", trace.sql),
			zap.Duration("duration", duration),
			zap.Error(data.Err))
		return
	}

	fields := []zap.Field{
		zap.String("sql", trace.sql),
		zap.Duration("duration", duration),
		zap.String("command_tag", data.CommandTag.String()),
	}

	if ql.slowThreshold > 0 && duration > ql.slowThreshold {
		ql.logger.Warn("slow query", fields...)
		return
	}

	ql.logger.Debug("query executed", fields...)
}
