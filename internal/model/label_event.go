package model

// EventAction tells whether a label was newly assigned or changed later.
type EventAction string

// Event actions.
const (
	ActionAssigned EventAction = "assigned"
	ActionChanged  EventAction = "changed"
)

// LabelEvent is the audit record emitted for every assignment or correction.
type LabelEvent struct {
	ID     string
	Label  string
	Action EventAction
}

// Fields renders the event as the key/value record pushed to the audit channel.
func (e LabelEvent) Fields() map[string]any {
	return map[string]any{
		"id":     e.ID,
		"label":  e.Label,
		"action": string(e.Action),
	}
}
