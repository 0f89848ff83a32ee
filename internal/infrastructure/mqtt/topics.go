package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "graydb"

// Topics builds graydb event topics under a prefix.
//
//	topics := mqtt.NewTopics("graydb")
//	topics.DeviationProposed()
//	// Returns: "graydb/deviations/proposed"
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix. Surrounding slashes are
// trimmed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root segment.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

func (t Topics) join(parts ...string) string {
	return t.Prefix() + "/" + strings.Join(parts, "/")
}

// SystemStatus carries retained online/offline status and the LWT.
//
// Example: graydb/system/status
func (t Topics) SystemStatus() string { return t.join("system", "status") }

// ParityRuns carries one summary per harness run.
//
// Example: graydb/parity/runs
func (t Topics) ParityRuns() string { return t.join("parity", "runs") }

// DeviationProposed carries records created by the harness.
//
// Example: graydb/deviations/proposed
func (t Topics) DeviationProposed() string { return t.join("deviations", "proposed") }

// Gate carries the latest release gate result, retained.
//
// Example: graydb/gate
func (t Topics) Gate() string { return t.join("gate") }

// AllEvents matches every topic under the prefix.
//
// Pattern: graydb/#
func (t Topics) AllEvents() string { return t.join("#") }
