// Package messaging connects the lot service to the RabbitMQ broker: one
// connection feeding a publisher on the lot.events topic exchange and a
// consumer keeping the local user directory in sync. Failed deliveries
// retry through the broker and land on a per-queue dead letter queue.
package messaging

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/flowlytix/distribution-backend/pkg/config"
	"github.com/flowlytix/distribution-backend/pkg/logger"
)

// deadLetterExchange receives messages that exhausted their delivery attempts
const deadLetterExchange = "dlx.events"

// RabbitMQ holds the broker connection shared by the publisher and consumer
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	logger  *logger.Logger
	mu      sync.RWMutex
}

// New dials the broker, retrying up to MaxRetries times with ReconnectDelay
// between attempts so the service survives a broker that is still starting.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config: cfg,
		logger: log,
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = rmq.connect(); err == nil {
			return rmq, nil
		}
		if attempt >= cfg.MaxRetries {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("broker not reachable, retrying")
		time.Sleep(cfg.ReconnectDelay)
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", cfg.MaxRetries, err)
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.config.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := channel.Qos(r.config.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("set QoS: %w", err)
	}

	r.conn = conn
	r.channel = channel
	r.logger.Info().Msg("connected to RabbitMQ")
	return nil
}

func (r *RabbitMQ) ch() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close closes the channel and the underlying connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports the broker connection state for the health endpoint
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]string{
		"status": "up",
	}

	if r.conn == nil || r.conn.IsClosed() {
		status["status"] = "down"
		status["error"] = "connection closed"
	}

	return status
}

// declareTopicExchange declares a durable topic exchange
func (r *RabbitMQ) declareTopicExchange(name string) error {
	return r.ch().ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
}

// declareWorkQueue declares a durable queue whose rejected messages
// route to the dead letter exchange.
func (r *RabbitMQ) declareWorkQueue(name string) (amqp.Queue, error) {
	return r.ch().QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange": deadLetterExchange,
		},
	)
}

// declareDeadLetterQueue sets up the DLX and a catch-all dlq.<queue>
// parking queue for messages the consumer gave up on.
func (r *RabbitMQ) declareDeadLetterQueue(queueName string) error {
	ch := r.ch()

	if err := ch.ExchangeDeclare(deadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}

	dlq := fmt.Sprintf("dlq.%s", queueName)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ %s: %w", dlq, err)
	}

	if err := ch.QueueBind(dlq, "#", deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ %s: %w", dlq, err)
	}

	return nil
}

func (r *RabbitMQ) bindQueue(queueName, exchange, routingKey string) error {
	return r.ch().QueueBind(
		queueName,
		routingKey,
		exchange,
		false,
		nil,
	)
}
