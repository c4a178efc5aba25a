package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink 发布事件到 Kafka，按 AggregateID 分区保证同一订单有序
type KafkaSink struct {
	w *kafka.Writer
}

// NewKafkaSink 创建 Kafka 发布器
// 重试由 worker pool 负责，这里使用同步写入以便拿到错误
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaSink) Deliver(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
			{Key: "event-id", Value: []byte(evt.ID)},
		},
	})
}

// Close 关闭 writer，刷新缓冲
func (k *KafkaSink) Close() error {
	return k.w.Close()
}
