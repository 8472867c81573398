package models

import "time"

type EventType string

const (
	EventDeposit             EventType = "deposit"
	EventPayout              EventType = "payout"
	EventEmergencyWithdrawal EventType = "emergency_withdrawal"
	EventPlanCreated         EventType = "plan_created"
	EventPlanPaused          EventType = "plan_paused"
	EventPlanResumed         EventType = "plan_resumed"
	EventCardAdded           EventType = "card_added"
	EventAccountAssigned     EventType = "account_assigned"
)

type EventStatus string

const (
	EventUnread EventStatus = "unread"
	EventRead   EventStatus = "read"
)

// Event is a user-facing notification.
type Event struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Type          EventType   `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Status        EventStatus `json:"status"`
	TransactionID *string     `json:"transaction_id,omitempty"`
	PayoutPlanID  *string     `json:"payout_plan_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
