package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic structure. A door relay controller subscribes to the decision
// topic and actuates the strike on granted results.
const (
	// AccessDecisionTopic carries the outcome of every credential check.
	AccessDecisionTopic = "doorlatch/access/decision"

	// SystemStatusTopic carries online/offline status (retained, with LWT).
	SystemStatusTopic = "doorlatch/system/status"
)

// Decision is the payload published after each access check.
type Decision struct {
	Granted   bool      `json:"granted"`
	Subject   string    `json:"subject,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AnnounceDecision publishes an access decision to the broker.
//
// Decisions are not retained: a relay controller acting on a stale
// retained grant would be a security hole, so only live messages count.
func (c *Client) AnnounceDecision(d Decision) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshalling access decision: %w", err)
	}

	return c.Publish(AccessDecisionTopic, payload, byte(c.cfg.QoS), false)
}
