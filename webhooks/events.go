package webhooks

import (
	"encoding/json"
	"strings"
)

type Event struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp,omitempty"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
	Entity      EventEntity `json:"entity"`
	Data        EventData   `json:"data"`
}

type EventEntity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type EventData struct {
	Parent *EventParent `json:"parent,omitempty"`
}

type EventParent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (e Event) ParentID() string {
	if e.Data.Parent == nil {
		return ""
	}
	return strings.TrimSpace(e.Data.Parent.ID)
}

type handshake struct {
	VerificationToken string `json:"verification_token"`
}

// handshakeToken returns the token of a subscription handshake body
// unchanged, or "" when body is anything else.
func handshakeToken(body []byte) string {
	var hs handshake
	if err := json.Unmarshal(body, &hs); err != nil {
		return ""
	}
	if strings.TrimSpace(hs.VerificationToken) == "" {
		return ""
	}
	return hs.VerificationToken
}

func parseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, malformedEventError(err, "webhooks: event body is not valid json", nil)
	}
	event.Type = strings.TrimSpace(event.Type)
	event.Entity.ID = strings.TrimSpace(event.Entity.ID)
	return event, nil
}

// sameID compares record ids ignoring dashes and case.
func sameID(a string, b string) bool {
	return normalizeID(a) == normalizeID(b)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}
