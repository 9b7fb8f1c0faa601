// Package amqp carries budget alerts over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/rabbitmq/amqp091-go"

	applog "github.com/salemadams/cash-dash/internal/log"
)

const publishTimeout = 5 * time.Second

// DialOptions controls how NewClient retries the initial connection.
type DialOptions struct {
	Attempts uint
	Delay    time.Duration
}

func DefaultDialOptions() DialOptions {
	return DialOptions{Attempts: 5, Delay: time.Second}
}

type dialFunc func(url string) (*amqp091.Connection, error)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *applog.Logger
}

// NewClient connects to the broker, retrying with exponential backoff, and
// declares the alert exchange and queue.
func NewClient(ctx context.Context, url, exchangeName, queueName string, opts DialOptions, logger *applog.Logger) (*Client, error) {
	return newClient(ctx, amqp091.Dial, url, exchangeName, queueName, opts, logger)
}

func newClient(ctx context.Context, dial dialFunc, url, exchangeName, queueName string, opts DialOptions, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentAMQP)

	conn, err := dialWithRetry(ctx, dial, url, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func dialWithRetry(ctx context.Context, dial dialFunc, url string, opts DialOptions, logger *applog.Logger) (*amqp091.Connection, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	var conn *amqp091.Connection
	err := retry.Do(
		func() error {
			c, err := dial(url)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("AMQP dial failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// The routing key is the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishBudgetAlert sends msg as a persistent JSON message.
func (c *Client) PublishBudgetAlert(ctx context.Context, msg *BudgetAlertMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Budget alert published",
		applog.FieldBudgetID, msg.BudgetID,
		applog.FieldMonth, msg.Month,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// AlertHandler processes one consumed alert. A returned error requeues it.
type AlertHandler func(context.Context, *BudgetAlertMessage) error

// ConsumeBudgetAlerts blocks delivering alerts to handler until ctx is done
// or the channel closes.
func (c *Client) ConsumeBudgetAlerts(ctx context.Context, handler AlertHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming budget alerts", "queue", c.queueName)
	return consume(ctx, msgs, handler, c.logger)
}

var errChannelClosed = errors.New("message channel closed")

func consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler AlertHandler, logger *applog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errChannelClosed
			}
			handleDelivery(ctx, delivery, handler, logger)
		}
	}
}

// handleDelivery acks on success, drops undecodable bodies, and requeues
// handler failures.
func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler AlertHandler, logger *applog.Logger) {
	msg, err := BudgetAlertMessageFromJSON(delivery.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
		delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle budget alert",
			applog.FieldError, err,
			applog.FieldBudgetID, msg.BudgetID,
			applog.FieldMonth, msg.Month)
		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
	logger.DebugContext(ctx, "Budget alert processed",
		applog.FieldBudgetID, msg.BudgetID,
		applog.FieldMonth, msg.Month)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
