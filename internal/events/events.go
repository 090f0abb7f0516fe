// Package events provides an optional fanout of audit entries to an
// external message broker, for ingestion by SIEM or monitoring pipelines.
// The database append remains the system of record; publishing here is
// strictly best-effort and never affects the outcome of a request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medimg-lab/apiserver/config"
	"github.com/medimg-lab/apiserver/types"
)

// Publisher delivers serialized audit entries to a broker.
type Publisher interface {
	PublishAudit(ctx context.Context, entry types.AuditEntry) error
	Close() error
}

// NewPublisher selects a broker backend from config, or nil when the
// fanout is disabled.
func NewPublisher(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg.PubSubProject, cfg.PubSubTopic)
	default:
		return nil, fmt.Errorf("unknown audit events backend: %q", cfg.Backend)
	}
}

func marshalAudit(entry types.AuditEntry) ([]byte, map[string]string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		"action": entry.Action,
		"result": string(entry.Result),
	}
	return data, attrs, nil
}
