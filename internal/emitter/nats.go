package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/scoring-service/internal/models"
)

// Publisher is the subset of *nats.Conn the NATS sink needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSEmitter publishes each record as JSON on <prefix>.<stage>, with the
// tags carried as message headers.
type NATSEmitter struct {
	pub    Publisher
	prefix string
}

func NewNATSEmitter(pub Publisher, prefix string) *NATSEmitter {
	if prefix == "" {
		prefix = "scoring.emit"
	}
	return &NATSEmitter{pub: pub, prefix: prefix}
}

// Subject returns the subject records of the given stage are published on.
func (e *NATSEmitter) Subject(stage string) string {
	return fmt.Sprintf("%s.%s", e.prefix, stage)
}

func (e *NATSEmitter) publish(stage string, rec any, tags models.Tags) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", stage, err)
	}

	msg := nats.NewMsg(e.Subject(stage))
	msg.Data = data
	for k, v := range tags {
		msg.Header.Set(k, v)
	}

	if err := e.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s record: %w", stage, err)
	}
	return nil
}

func (e *NATSEmitter) EmitInputs(_ context.Context, rec *models.InputRecord, tags models.Tags) error {
	return e.publish(StageInputs, rec, tags)
}

func (e *NATSEmitter) EmitResults(_ context.Context, rec *models.ResultRecord, tags models.Tags) error {
	return e.publish(StageResults, rec, tags)
}

func (e *NATSEmitter) EmitModelRuns(_ context.Context, rec *models.ModelRun, tags models.Tags) error {
	return e.publish(StageModelRuns, rec, tags)
}
