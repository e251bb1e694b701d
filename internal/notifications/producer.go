package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher delivers notifications to users
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
	Close() error
}

// PublishAfterCommit queues n for delivery once tx commits. A delivery
// failure is logged and never reaches the caller.
func PublishAfterCommit(tx *database.Tx, publisher Publisher, n *Notification) {
	if publisher == nil || n == nil {
		return
	}
	tx.AfterCommit("notify "+string(n.Type), func(ctx context.Context) {
		if err := publisher.Publish(ctx, n); err != nil {
			logger.GetDefault().Warn("failed to publish notification",
				slog.String("type", string(n.Type)),
				slog.String("user_id", n.UserID.String()),
				slog.String("error", err.Error()),
			)
		}
	})
}

// KafkaProducerConfig contains configuration for the Kafka notification producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig(brokers []string, topic string) *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          brokers,
		Topic:            topic,
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// KafkaPublisher writes notifications to a topic keyed by user id
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaPublisher dials the brokers and returns a publisher
func NewKafkaPublisher(config *KafkaProducerConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent writes require a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
		saramaConfig.Version = sarama.V2_1_0_0
	}

	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.GetDefault().Info("kafka notification producer created",
		slog.Any("brokers", config.Brokers),
		slog.String("topic", config.Topic),
	)
	return NewKafkaPublisherWithProducer(producer, config.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: logger.GetDefault()}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n *Notification) error {
	messageBytes, err := n.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(n.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   p.createHeaders(n),
		Timestamp: n.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	p.log.Debug("notification published",
		slog.String("topic", p.topic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("type", string(n.Type)),
	)
	return nil
}

func (p *KafkaPublisher) createHeaders(n *Notification) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("user_id"), Value: []byte(n.UserID.String())},
		{Key: []byte("producer"), Value: []byte("twendebus-api")},
	}
	if n.BookingID != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("booking_id"),
			Value: []byte(n.BookingID.String()),
		})
	}
	return headers
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// StorePublisher writes notifications straight to the database. It is used
// when no brokers are configured.
type StorePublisher struct {
	repo Repository
}

func NewStorePublisher(repo Repository) *StorePublisher {
	return &StorePublisher{repo: repo}
}

func (p *StorePublisher) Publish(ctx context.Context, n *Notification) error {
	return p.repo.Save(ctx, n)
}

func (p *StorePublisher) Close() error {
	return nil
}
