package amqp

import (
	"encoding/json"
	"time"
)

// Routing keys
const (
	RoutingPaymentConfirmed  = "payment.confirmed"
	RoutingReminderRequested = "payment.reminder_requested"
)

// PaymentConfirmedMessage announces a payment flipped to confirmed.
// The worker reloads the payment from the database before exporting it.
type PaymentConfirmedMessage struct {
	PaymentID   string    `json:"paymentId"`
	MemberID    string    `json:"memberId"`
	AmountCRC   int64     `json:"amountCRC"`
	DueDate     string    `json:"dueDate"`
	ConfirmedAt time.Time `json:"confirmedAt"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReminderRequestedMessage asks the worker to handle a payment reminder.
type ReminderRequestedMessage struct {
	ReminderID  string    `json:"reminderId"`
	PaymentID   string    `json:"paymentId"`
	MemberID    string    `json:"memberId"`
	RequestedAt time.Time `json:"requestedAt"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewPaymentConfirmedMessage(paymentID, memberID string, amount int64, dueDate string, confirmedAt time.Time) *PaymentConfirmedMessage {
	return &PaymentConfirmedMessage{
		PaymentID:   paymentID,
		MemberID:    memberID,
		AmountCRC:   amount,
		DueDate:     dueDate,
		ConfirmedAt: confirmedAt,
		Timestamp:   time.Now(),
	}
}

func NewReminderRequestedMessage(reminderID, paymentID, memberID string, requestedAt time.Time) *ReminderRequestedMessage {
	return &ReminderRequestedMessage{
		ReminderID:  reminderID,
		PaymentID:   paymentID,
		MemberID:    memberID,
		RequestedAt: requestedAt,
		Timestamp:   time.Now(),
	}
}

func (m *PaymentConfirmedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ReminderRequestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentConfirmedMessageFromJSON(data []byte) (*PaymentConfirmedMessage, error) {
	var msg PaymentConfirmedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ReminderRequestedMessageFromJSON(data []byte) (*ReminderRequestedMessage, error) {
	var msg ReminderRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
