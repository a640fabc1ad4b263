package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/storefront/internal/model"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
)

// OrderLoader reads committed orders.
type OrderLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// StatsRecorder counts an order once; it reports false for an order it has
// already seen.
type StatsRecorder interface {
	Record(ctx context.Context, order *model.Order) (bool, error)
}

// OrderWorker consumes order placed events and feeds the daily stats.
type OrderWorker struct {
	channel *amqp.Channel
	orders  OrderLoader
	stats   StatsRecorder
	log     *slog.Logger
	done    chan struct{}
}

func NewOrderWorker(ch *amqp.Channel, orders OrderLoader, stats StatsRecorder, log *slog.Logger) *OrderWorker {
	return &OrderWorker{
		channel: ch,
		orders:  orders,
		stats:   stats,
		log:     log,
		done:    make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var placed model.OrderPlacedMessage
	if err := json.Unmarshal(msg.Body, &placed); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", placed.OrderID, "user_id", placed.UserID)

	order, err := w.orders.GetByID(ctx, placed.OrderID)
	if err != nil {
		log.Error("load order", "error", err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	if order == nil {
		log.Warn("order no longer exists, skipping")
		_ = msg.Ack(false)
		return
	}

	recorded, err := w.stats.Record(ctx, order)
	if err != nil {
		log.Error("record order stats", "error", err)
		// one retry, then the message goes to the DLQ
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	if !recorded {
		log.Info("order already processed, skipping")
	} else {
		log.Info("order processed successfully")
	}
	_ = msg.Ack(false)
}

// Publisher sends order placed events to the orders queue.
type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{channel: ch}
}

var errNoChannel = errors.New("amqp channel is not open")

func (p *Publisher) PublishOrderPlaced(ctx context.Context, msg model.OrderPlacedMessage) error {
	if p == nil || p.channel == nil || p.channel.IsClosed() {
		return errNoChannel
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order message: %w", err)
	}
	return nil
}
