package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
)

// MessageType is the Pub/Sub attribute value for approval notices.
const MessageType = "device_approval"

// Publisher queues approval requests on a Pub/Sub topic for the mail worker.
type Publisher struct {
	publisher *pubsub.Publisher
}

// NewPublisher creates a Publisher for topic on client.
func NewPublisher(client *pubsub.Client, topic string) *Publisher {
	return &Publisher{publisher: client.Publisher(topic)}
}

// SendApprovalRequest publishes req and waits for the server ack.
func (p *Publisher) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	msg, err := EncodeMessage(req)
	if err != nil {
		return err
	}
	if _, err := p.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish approval request: %w", err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	p.publisher.Stop()
}

// EncodeMessage converts req to a Pub/Sub message.
func EncodeMessage(req ApprovalRequest) (*pubsub.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode approval request: %w", err)
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": MessageType},
	}, nil
}

// DecodeMessage is the inverse of EncodeMessage.
func DecodeMessage(data []byte) (ApprovalRequest, error) {
	var req ApprovalRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode approval request: %w", err)
	}
	if req.RequestID == 0 || req.ApproveURL == "" || req.RejectURL == "" {
		return req, fmt.Errorf("decode approval request: missing fields")
	}
	return req, nil
}

var _ Notifier = (*Publisher)(nil)
