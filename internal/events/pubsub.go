package events

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/medimg-lab/apiserver/types"
)

// PubSubPublisher publishes audit entries to a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to Pub/Sub and resolves the audit topic.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if strings.TrimSpace(topicID) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// PublishAudit sends one audit entry to the topic and waits for the
// server acknowledgement.
func (p *PubSubPublisher) PublishAudit(ctx context.Context, entry types.AuditEntry) error {
	data, attrs, err := marshalAudit(entry)
	if err != nil {
		return err
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	_, err = result.Get(ctx)
	return err
}

// Close stops the topic's publish goroutines and closes the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
