package notify

import (
	"encoding/json"
)

// Event is one marketplace notice pushed over the websocket stream.
type Event struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Status string `json:"status,omitempty"`
}

const (
	EventTaskerApproved = "tasker_approved"
	EventTaskerRejected = "tasker_rejected"
	EventPaymentUpdate  = "payment_update"
	EventMessage        = "message"
)

// Notifier pushes best-effort notices through the hub. Delivery failures are
// silently dropped; notices never gate a state transition.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) push(userID string, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return
	}
	n.hub.Broadcast(userID, raw)
}

// TaskerApproved tells a tasker their application won the selection.
func (n *Notifier) TaskerApproved(taskID, taskerID string) {
	n.push(taskerID, Event{Type: EventTaskerApproved, TaskID: taskID})
}

// TaskerRejected tells a tasker their application was rejected.
func (n *Notifier) TaskerRejected(taskID, taskerID string) {
	n.push(taskerID, Event{Type: EventTaskerRejected, TaskID: taskID})
}

// PaymentUpdate tells a participant the advance payment changed state.
func (n *Notifier) PaymentUpdate(taskID, userID, status string) {
	n.push(userID, Event{Type: EventPaymentUpdate, TaskID: taskID, Status: status})
}

// NewMessage tells a participant a chat message arrived.
func (n *Notifier) NewMessage(taskID, userID string) {
	n.push(userID, Event{Type: EventMessage, TaskID: taskID})
}
