package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"social_fetcher/internal/domain"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// NewRabbitMQ connects and declares a durable direct exchange with one
// durable queue bound to the posts routing key.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %q: %w", cfg.QueueName, err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to %q: %w", q.Name, cfg.Exchange, err)
	}
	return nil
}

const ActionPostsUpserted = "posts.upserted"

// PostsMessage announces a batch of posts written by one pipeline run.
type PostsMessage struct {
	Action        string    `json:"action"`
	RunID         string    `json:"run_id"`
	TrackingSetID string    `json:"tracking_set_id"`
	Platform      string    `json:"platform"`
	Username      string    `json:"username"`
	PostIDs       []string  `json:"post_ids"`
	Upserted      int64     `json:"upserted"`
	Modified      int64     `json:"modified"`
	Matched       int64     `json:"matched"`
	SkippedNoID   int       `json:"skipped_no_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r *RabbitMQ) PublishPosts(ctx context.Context, report *domain.RunReport, postIDs []string) error {
	msg := PostsMessage{
		Action:      ActionPostsUpserted,
		RunID:       report.RunID,
		PostIDs:     postIDs,
		Upserted:    report.Posts.Upserted,
		Modified:    report.Posts.Modified,
		Matched:     report.Posts.Matched,
		SkippedNoID: report.Posts.SkippedNoID,
		Timestamp:   time.Now().UTC(),
	}
	if t := report.Target; t != nil {
		msg.TrackingSetID = t.TrackingSetID
		msg.Platform = t.Platform
		msg.Username = t.Username
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    report.RunID,
			Type:         ActionPostsUpserted,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published posts",
		"run_id", report.RunID,
		"posts", len(postIDs),
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
