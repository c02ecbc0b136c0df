package service

import (
	"context"

	"github.com/google/uuid"
)

// События, рассылаемые пользователям.
const (
	EventBidReceived       = "bid_received"
	EventBidWithdrawn      = "bid_withdrawn"
	EventBidFeedback       = "bid_feedback"
	EventOfferReceived     = "offer_received"
	EventOfferAccepted     = "offer_accepted"
	EventOfferRejected     = "offer_rejected"
	EventMilestoneAdded    = "milestone_added"
	EventMilestoneApproved = "milestone_approved"
	EventFundsReleased     = "funds_released"
	EventMessageReceived   = "message_received"
)

// Notifier — порт доставки уведомлений. Доставка выполняется по месту
// лучших усилий: сбой уведомления логируется и никогда не влияет на
// исход операции, которая его породила.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// NopNotifier отбрасывает уведомления. Используется в тестах и там,
// где доставка не нужна.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {}
