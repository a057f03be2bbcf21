// Package pubsub publishes rows to a Cloud Pub/Sub topic so downstream
// loaders can consume them.
package pubsub

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/trademark-crawler/internal/records"
)

// Message attribute keys.
const (
	AttrTable   = "table"
	AttrID      = "id"
	AttrAttempt = "attempt"
)

// Writer publishes one message per row.
type Writer struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New opens a client for project and binds topicID.
func New(ctx context.Context, project, topicID string) (*Writer, error) {
	if project == "" {
		return nil, fmt.Errorf("pubsub project is required")
	}
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	w, err := NewWithClient(client, topicID)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return w, nil
}

// NewWithClient binds topicID on an existing client.
func NewWithClient(client *pubsub.Client, topicID string) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	return &Writer{client: client, topic: client.Topic(topicID)}, nil
}

// Insert publishes row and waits for the server ack.
func (w *Writer) Insert(ctx context.Context, row records.Row) error {
	msg := &pubsub.Message{
		Data: row.Data,
		Attributes: map[string]string{
			AttrTable:   string(row.Table),
			AttrID:      row.ID,
			AttrAttempt: strconv.Itoa(row.Attempt),
		},
	}
	if _, err := w.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish %s row: %w", row.Table, err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (w *Writer) Close() error {
	w.topic.Stop()
	if err := w.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
