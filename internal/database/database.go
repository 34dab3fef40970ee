// Package database содержит инициализацию подключений к хранилищам.
// Бутстрап логируется через zerolog: он происходит до сборки основного
// zap-логгера приложения.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const connectTimeout = 10 * time.Second

// NewPostgresPool создает пул подключений к PostgreSQL и проверяет связь.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора DSN: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула PostgreSQL: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка проверки подключения к PostgreSQL: %w", err)
	}

	log.Info().Str("database", cfg.ConnConfig.Database).Msg("Connected to PostgreSQL")
	return pool, nil
}

// NewRedisClient создает клиент Redis и проверяет связь.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(connectCtx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	log.Info().Str("addr", addr).Msg("Connected to Redis")
	return client, nil
}

// NewRabbitMQChannel подключается к RabbitMQ и открывает канал.
// Возвращает соединение для корректного закрытия при остановке.
func NewRabbitMQChannel(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ошибка открытия канала RabbitMQ: %w", err)
	}

	log.Info().Msg("Connected to RabbitMQ")
	return conn, channel, nil
}
