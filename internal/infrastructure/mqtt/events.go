package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/parity"
)

// publisher is the subset of *Client that Events needs.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Events publishes governance and parity events as JSON.
//
// It satisfies parity.Notifier, so a harness can announce every record it
// proposes the moment the registry accepts it.
type Events struct {
	pub    publisher
	topics Topics
	qos    byte
	now    func() time.Time
}

// NewEvents returns an event publisher over a connected client.
func NewEvents(c *Client) *Events {
	return newEvents(c, c.Topics(), byte(c.cfg.QoS))
}

func newEvents(pub publisher, topics Topics, qos byte) *Events {
	return &Events{pub: pub, topics: topics, qos: qos, now: time.Now}
}

// DeviationEvent is the payload on <prefix>/deviations/proposed.
type DeviationEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Record    governance.Record `json:"record"`
}

// ParityEvent is the payload on <prefix>/parity/runs.
type ParityEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id"`
	BatteryVersion string    `json:"battery_version"`
	Reference      string    `json:"reference"`
	Candidate      string    `json:"candidate"`
	Scenarios      int       `json:"scenarios"`
	Match          int       `json:"match"`
	Covered        int       `json:"covered"`
	Uncovered      int       `json:"uncovered"`
	NewRecords     []string  `json:"new_records,omitempty"`
	Summary        string    `json:"summary"`
}

// GateEvent is the retained payload on <prefix>/gate.
type GateEvent struct {
	Timestamp time.Time             `json:"timestamp"`
	Result    governance.GateResult `json:"result"`
	Summary   string                `json:"summary"`
}

// DeviationProposed publishes a newly proposed record.
func (e *Events) DeviationProposed(ctx context.Context, rec governance.Record) error {
	return e.publish(ctx, e.topics.DeviationProposed(), false, DeviationEvent{
		Timestamp: e.now().UTC(),
		Record:    rec,
	})
}

// PublishParityReport publishes the summary of a harness run.
func (e *Events) PublishParityReport(ctx context.Context, r *parity.Report) error {
	return e.publish(ctx, e.topics.ParityRuns(), false, ParityEvent{
		Timestamp:      e.now().UTC(),
		RunID:          r.RunID,
		BatteryVersion: r.BatteryVersion,
		Reference:      r.Reference,
		Candidate:      r.Candidate,
		Scenarios:      len(r.Outcomes),
		Match:          r.Count(parity.Match),
		Covered:        r.Count(parity.Covered),
		Uncovered:      r.Count(parity.Uncovered),
		NewRecords:     r.ProposedRecords(),
		Summary:        r.Summary(),
	})
}

// PublishGateResult publishes a gate evaluation as retained state.
func (e *Events) PublishGateResult(ctx context.Context, g governance.GateResult) error {
	return e.publish(ctx, e.topics.Gate(), true, GateEvent{
		Timestamp: e.now().UTC(),
		Result:    g,
		Summary:   g.Summary(),
	})
}

func (e *Events) publish(ctx context.Context, topic string, retained bool, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, topic, err)
	}
	return e.pub.Publish(topic, payload, e.qos, retained)
}

var _ parity.Notifier = (*Events)(nil)
