// Package messaging публикует события жизненного цикла историй в RabbitMQ.
// События потребляет внешний сервис уведомлений.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Типы событий истории.
const (
	EventChapterGenerated = "chapter_generated"
	EventStoryCompleted   = "story_completed"
)

// StoryEventPayload - сообщение о событии истории.
type StoryEventPayload struct {
	EventType     string    `json:"event_type"`
	StoryID       string    `json:"story_id"`
	UserID        string    `json:"user_id"`
	ChapterNumber int       `json:"chapter_number,omitempty"`
	TotalChapters int       `json:"total_chapters,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StoryEventPublisher - интерфейс публикации событий историй.
type StoryEventPublisher interface {
	PublishStoryEvent(ctx context.Context, payload StoryEventPayload) error
}

// Compile-time check
var _ StoryEventPublisher = (*rabbitMQPublisher)(nil)

type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQPublisher объявляет очередь и создает издателя.
// Очередь durable: события не теряются при перезапуске брокера.
func NewRabbitMQPublisher(channel *amqp.Channel, queueName string, logger *zap.Logger) (StoryEventPublisher, error) {
	_, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка объявления очереди %s: %w", queueName, err)
	}
	return &rabbitMQPublisher{
		channel:   channel,
		queueName: queueName,
		logger:    logger.Named("RabbitMQPublisher"),
	}, nil
}

// noopPublisher используется при отключенном брокере (локальная разработка).
type noopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher создает издателя, который только логирует события.
func NewNoopPublisher(logger *zap.Logger) StoryEventPublisher {
	return &noopPublisher{logger: logger.Named("NoopPublisher")}
}

func (p *noopPublisher) PublishStoryEvent(_ context.Context, payload StoryEventPayload) error {
	p.logger.Debug("Story event dropped (messaging disabled)",
		zap.String("eventType", payload.EventType),
		zap.String("storyID", payload.StoryID))
	return nil
}

func (p *rabbitMQPublisher) PublishStoryEvent(ctx context.Context, payload StoryEventPayload) error {
	logFields := []zap.Field{
		zap.String("eventType", payload.EventType),
		zap.String("storyID", payload.StoryID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal story event", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",          // exchange: default
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish story event", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка публикации события: %w", err)
	}
	p.logger.Debug("Story event published", logFields...)
	return nil
}
