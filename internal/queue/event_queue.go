package queue

import (
	"context"
	"lesson-booking/internal/model"
)

type Delivery struct {
	Data *model.DomainEvent
	Ack  func()
	Nack func(requeue bool)
}

type EventQueue interface {
	// 發送事件到隊列
	Publish(ctx context.Context, event *model.DomainEvent) error
	// 訂閱事件隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryEventQueue struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.DomainEvent
}

func NewMemoryEventQueue(bufferSize int) EventQueue {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &MemoryEventQueue{
		ch: make(chan *model.DomainEvent, bufferSize),
	}
}

func (q *MemoryEventQueue) Publish(ctx context.Context, event *model.DomainEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryEventQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							// 不阻塞消費端；buffer 滿時直接丟棄
							select {
							case q.ch <- event:
							default:
							}
						}
					},
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
