package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink 未配置 Kafka 时的兜底：只写日志
type LogSink struct {
	Log *zap.Logger
}

func (l LogSink) Deliver(_ context.Context, evt Event) error {
	l.Log.Info("domain event",
		zap.String("event_id", evt.ID),
		zap.String("type", evt.Type),
		zap.String("aggregate_id", evt.AggregateID),
		zap.String("user_id", evt.UserID),
	)
	return nil
}
