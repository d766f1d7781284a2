package kafka

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader  *kafka.Reader
	handler EventHandler
	logger  zerolog.Logger
}

type EventHandler interface {
	HandleSecurityEvent(ctx context.Context, event *SecurityEvent) error
}

func NewConsumer(brokers []string, topic string, groupID string, handler EventHandler, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger.With().Str("component", "kafka-consumer").Logger(),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := c.reader.ReadMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error().Err(err).Msg("read message failed")
					continue
				}

				var event SecurityEvent
				if err := json.Unmarshal(msg.Value, &event); err != nil {
					c.logger.Error().Err(err).Msg("unmarshal event failed")
					continue
				}

				if err := c.handler.HandleSecurityEvent(ctx, &event); err != nil {
					c.logger.Error().Err(err).Str("event_type", event.EventType).Msg("handle event failed")
				}
			}
		}
	}()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// LoggingEventHandler records consumed events; useful as a default sink when
// no downstream processor is configured.
type LoggingEventHandler struct {
	Logger zerolog.Logger
}

func (h *LoggingEventHandler) HandleSecurityEvent(_ context.Context, event *SecurityEvent) error {
	h.Logger.Info().
		Str("event_type", event.EventType).
		Str("ip", event.IP).
		Str("severity", event.Severity).
		Int("anomaly_score", event.AnomalyScore).
		Msg("security event received")
	return nil
}
