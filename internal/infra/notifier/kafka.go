package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafkaへのfire-and-forget配信。
// 配信失敗はログに残すだけで呼び出し元へは返さない（確定処理を巻き戻さない）。
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaNotifier{writer: writer}
}

func (n *KafkaNotifier) Publish(ctx context.Context, topic string, key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("notifier: marshal failed", "topic", topic, "key", key, "error", err)
		return
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		slog.Error("notifier: publish failed", "topic", topic, "key", key, "error", err)
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// ブローカー未設定のとき用。何もしない。
type NopNotifier struct{}

func (NopNotifier) Publish(ctx context.Context, topic string, key string, payload interface{}) {}
