package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
)

// AuditPublisher fans audit entries out to a topic exchange. Routing keys
// look like "audit.payment.payment_created".
type AuditPublisher struct {
	conn     *RabbitMQConnection
	exchange string

	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// NewAuditPublisher declares the exchange and returns a publisher for it
func NewAuditPublisher(conn *RabbitMQConnection, exchange string) (*AuditPublisher, error) {
	err := conn.Channel.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AuditPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends one audit entry
func (p *AuditPublisher) Publish(ctx context.Context, entry *entity.AuditLog) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.conn.Channel.PublishWithContext(
		ctx,
		p.exchange,
		RoutingKey(entry),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			MessageId:    entry.ID.String(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// RoutingKey builds the topic routing key for an entry
func RoutingKey(entry *entity.AuditLog) string {
	return "audit." + strings.ToLower(entry.EntityType) + "." + strings.ToLower(entry.Action)
}
