package eventlog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// OriginReplay marks entries re-injected from the dead letter store.
const OriginReplay = "replay"

// Entry is a claimable pointer to an event awaiting delivery. Origin is
// empty for normal publishes and "replay" for dead-letter re-injections.
type Entry struct {
	EventID      string            `json:"eventId"`
	Type         string            `json:"type"`
	Origin       string            `json:"origin,omitempty"`
	TraceHeaders map[string]string `json:"traceHeaders,omitempty"`
}

// NewEntry builds an entry for the given event.
func NewEntry(eventID int64, eventType, origin string) Entry {
	return Entry{
		EventID: strconv.FormatInt(eventID, 10),
		Type:    eventType,
		Origin:  origin,
	}
}

// EventIDInt decodes the string-encoded event id.
func (e Entry) EventIDInt() (int64, error) {
	id, err := strconv.ParseInt(e.EventID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad entry eventId %q: %w", e.EventID, err)
	}
	return id, nil
}

// ParseEntry decodes a raw log message.
func ParseEntry(body []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return Entry{}, fmt.Errorf("decode log entry: %w", err)
	}
	if e.EventID == "" {
		return Entry{}, fmt.Errorf("log entry missing eventId")
	}
	return e, nil
}

// Acker is the subset of the transport message used for acknowledgment.
type Acker interface {
	Finish()
	HasResponded() bool
}

// ClaimedEntry is an entry exclusively claimed by one consumer. It stays
// redeliverable until acknowledged.
type ClaimedEntry struct {
	Entry Entry
	ack   Acker
}

// NewClaimedEntry binds a decoded entry to its transport acknowledgment.
func NewClaimedEntry(e Entry, ack Acker) *ClaimedEntry {
	return &ClaimedEntry{Entry: e, ack: ack}
}

// Ack acknowledges the entry. Acking twice is a no-op.
func (c *ClaimedEntry) Ack() {
	if !c.ack.HasResponded() {
		c.ack.Finish()
	}
}

// Acked reports whether the entry has been acknowledged.
func (c *ClaimedEntry) Acked() bool {
	return c.ack.HasResponded()
}
