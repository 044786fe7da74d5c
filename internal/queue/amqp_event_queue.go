package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lesson-booking/internal/model"
	"lesson-booking/pkg/logger"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultAMQPQueue = "lesson.events"

// AMQPEventQueue RabbitMQ 版 EventQueue，發送端共用一個 channel
type AMQPEventQueue struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int

	mu     sync.Mutex
	pubCh  *amqp.Channel
	log    *zap.Logger
	closed bool
}

func NewAMQPEventQueue(url string, queueName string) (*AMQPEventQueue, error) {
	if queueName == "" {
		queueName = DefaultAMQPQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}

	// durable，broker 重啟後事件仍在
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	return &AMQPEventQueue{
		conn:      conn,
		queueName: queueName,
		prefetch:  50,
		pubCh:     ch,
		log:       logger.WithComponent("mq"),
	}, nil
}

// newPublishing 訊息時間沿用事件發生時間
func newPublishing(event *model.DomainEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt.UTC(),
		Body:         body,
	}, nil
}

func (q *AMQPEventQueue) Publish(ctx context.Context, event *model.DomainEvent) error {
	pub, err := newPublishing(event)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("amqp queue closed")
	}
	if err := q.pubCh.PublishWithContext(ctx, "", q.queueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (q *AMQPEventQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		q.log.Warn("set QoS failed", zap.Error(err))
	}

	msgs, err := ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer func() { _ = ch.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					q.log.Warn("deliveries channel closed")
					return
				}

				d, ok := q.newDelivery(msg)
				if !ok {
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *AMQPEventQueue) newDelivery(msg amqp.Delivery) (Delivery, bool) {
	var event model.DomainEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		q.log.Warn("unmarshal event failed", zap.String("message_id", msg.MessageId), zap.Error(err))
		// 格式錯誤不重送，避免無限迴圈
		_ = msg.Nack(false, false)
		return Delivery{}, false
	}

	return Delivery{
		Data: &event,
		Ack: func() {
			if err := msg.Ack(false); err != nil {
				q.log.Error("ack failed", zap.String("message_id", msg.MessageId), zap.Error(err))
			}
		},
		Nack: func(requeue bool) {
			if err := msg.Nack(false, requeue); err != nil {
				q.log.Error("nack failed", zap.String("message_id", msg.MessageId), zap.Error(err))
			}
		},
	}, true
}

func (q *AMQPEventQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	_ = q.pubCh.Close()
	return q.conn.Close()
}
