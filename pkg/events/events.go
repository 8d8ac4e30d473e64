package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/eprison/visitor-management/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Visit lifecycle events
	VisitRequested  = "visit.requested"
	VisitApproved   = "visit.approved"
	VisitRejected   = "visit.rejected"
	VisitCheckedIn  = "visit.checked_in"
	VisitCheckedOut = "visit.checked_out"

	// Emergency alert events
	AlertTriggered   = "alert.triggered"
	AlertResolved    = "alert.resolved"
	AlertReactivated = "alert.reactivated"

	// Notification events
	NotifySend = "notify.send"
)

// Event payloads
type VisitRequestedEvent struct {
	VisitID    int64     `json:"visit_id"`
	VisitorID  int64     `json:"visitor_id"`
	PrisonerID int64     `json:"prisoner_id"`
	VisitDate  string    `json:"visit_date"`
	TimeSlot   string    `json:"time_slot"`
	VisitType  string    `json:"visit_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type VisitDecidedEvent struct {
	VisitID   int64     `json:"visit_id"`
	VisitorID int64     `json:"visitor_id"`
	Decision  string    `json:"decision"`
	DecidedBy int64     `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

type VisitCheckedInEvent struct {
	VisitID     int64     `json:"visit_id"`
	VisitorID   int64     `json:"visitor_id"`
	JailID      int64     `json:"jail_id"`
	OperatorID  int64     `json:"operator_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type VisitCheckedOutEvent struct {
	VisitID      int64     `json:"visit_id"`
	VisitorID    int64     `json:"visitor_id"`
	JailID       int64     `json:"jail_id"`
	OperatorID   int64     `json:"operator_id"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

type AlertTriggeredEvent struct {
	AlertID       int64     `json:"alert_id"`
	EmergencyType string    `json:"emergency_type"`
	Location      string    `json:"location"`
	IssuedBy      int64     `json:"issued_by"`
	IssuedAt      time.Time `json:"issued_at"`
}

type AlertStateChangedEvent struct {
	AlertID   int64     `json:"alert_id"`
	Active    bool      `json:"active"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
}
