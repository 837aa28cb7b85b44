package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// InteractionHandler processes inbound interaction messages. The adaptive
// service implements it; declaring the interface here keeps the import
// direction one-way.
type InteractionHandler interface {
	HandleInteractionMessage(ctx context.Context, msg *InteractionMessage) error
}

// ModuleHandler ingests module announcements from the curriculum service so
// the local module projection stays current.
type ModuleHandler interface {
	HandleModuleMessage(ctx context.Context, msg *ModuleMessage) error
}

type Consumer interface {
	Start() error
	Close() error
}

type EventConsumer struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	queueName     string
	handler       InteractionHandler
	moduleHandler ModuleHandler
	enabled       bool
}

func NewEventConsumer(rabbitURI, exchangeName, queueName string, handler InteractionHandler, moduleHandler ModuleHandler) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			enabled: false,
		}, nil
	}

	// Connect to RabbitMQ
	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Create a channel
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Declare the exchange
	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare the queue
	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind the queue to interaction events from learning services and
	// module announcements from the curriculum service
	for _, routingKey := range []string{"learning.interaction.*", "curriculum.module.*"} {
		err = channel.QueueBind(
			queue.Name,   // queue name
			routingKey,   // routing key
			exchangeName, // exchange
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", routingKey, err)
		}
	}

	return &EventConsumer{
		conn:          conn,
		channel:       channel,
		queueName:     queue.Name,
		handler:       handler,
		moduleHandler: moduleHandler,
		enabled:       true,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled")
		return nil
	}

	// Set QoS
	err := c.channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// Start consuming messages
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
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	// Process messages in a goroutine
	go func() {
		for msg := range msgs {
			if err := c.processMessage(msg); err != nil {
				log.Printf("Failed to process message: %v", err)
				// Malformed payloads are dropped; requeueing them would loop forever.
				msg.Nack(false, false)
			} else {
				msg.Ack(false)
			}
		}
	}()

	log.Println("Event consumer started, waiting for messages...")
	return nil
}

func (c *EventConsumer) processMessage(msg amqp091.Delivery) error {
	log.Printf("Received message with routing key: %s", msg.RoutingKey)

	if strings.HasPrefix(msg.RoutingKey, "learning.interaction.") {
		return c.handleInteractionMessage(msg.Body)
	}
	if strings.HasPrefix(msg.RoutingKey, "curriculum.module.") {
		return c.handleModuleMessage(msg.Body)
	}

	log.Printf("Unknown routing key: %s", msg.RoutingKey)
	return nil // Don't requeue unknown message types
}

func (c *EventConsumer) handleModuleMessage(body []byte) error {
	var message ModuleMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal module message: %w", err)
	}

	log.Printf("Processing module announcement %s (%s)", message.ModuleID, message.Title)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.moduleHandler.HandleModuleMessage(ctx, &message); err != nil {
		return fmt.Errorf("failed to handle module message: %w", err)
	}

	return nil
}

func (c *EventConsumer) handleInteractionMessage(body []byte) error {
	var message InteractionMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal interaction message: %w", err)
	}

	log.Printf("Processing interaction for student %s, skill %s", message.StudentID, message.SkillKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.handler.HandleInteractionMessage(ctx, &message); err != nil {
		return fmt.Errorf("failed to handle interaction message: %w", err)
	}

	log.Printf("Successfully processed interaction for student %s", message.StudentID)
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
