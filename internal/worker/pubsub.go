package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/notify"
)

// Outcome is what the worker does with a message after handling it.
type Outcome int

const (
	// Ack removes the message: delivered, or not worth retrying.
	Ack Outcome = iota
	// Nack asks Pub/Sub to redeliver later.
	Nack
)

// PubSubHandler consumes approval notices and emails them.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	mailer           notify.Notifier
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Config Config
	// Mailer delivers decoded notices, normally a *notify.Mailer.
	Mailer notify.Notifier
	Logger zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.Config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.Config.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.Config.MaxOutstandingMessages
	subscriber.ReceiveSettings.MaxExtension = cfg.Config.MaxExtension

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.Config.SubscriptionName,
		mailer:           cfg.Mailer,
		logger:           cfg.Logger,
	}, nil
}

// NewMessageHandler creates a handler without a subscription, for delivering
// messages received by other means.
func NewMessageHandler(mailer notify.Notifier, logger zerolog.Logger) *PubSubHandler {
	return &PubSubHandler{mailer: mailer, logger: logger}
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if h.Handle(logger.WithContext(ctx), msg.Attributes, msg.Data) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	if h.client == nil {
		return nil
	}
	return h.client.Close()
}

// Handle delivers one message. Malformed payloads, unknown message types and
// notices without any recipient are acknowledged and dropped; delivery errors
// are retried.
func (h *PubSubHandler) Handle(ctx context.Context, attrs map[string]string, data []byte) Outcome {
	startTime := time.Now()
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &h.logger
	}

	if t := attrs["type"]; t != notify.MessageType {
		logger.Warn().Str("type", t).Msg("unknown message type")
		return Ack
	}

	req, err := notify.DecodeMessage(data)
	if err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return Ack
	}

	if err := h.mailer.SendApprovalRequest(ctx, req); err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			logger.Error().Int64("request_id", req.RequestID).Int64("store_id", req.StoreID).
				Msg("approval notice has no recipient, dropping")
			return Ack
		}
		logger.Error().Err(err).Int64("request_id", req.RequestID).Msg("approval email failed")
		return Nack
	}

	logger.Info().
		Int64("request_id", req.RequestID).
		Int64("store_id", req.StoreID).
		Str("request_type", req.RequestType).
		Dur("duration", time.Since(startTime)).
		Msg("approval email sent")
	return Ack
}
