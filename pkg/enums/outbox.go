package enums

// OutboxEventType names the domain events drained to Pub/Sub.
type OutboxEventType string

const (
	EventBidSubmitted OutboxEventType = "bid.submitted"
	EventBidFeePaid   OutboxEventType = "bid.fee_paid"
	EventBidAccepted  OutboxEventType = "bid.accepted"
	EventBidExpired   OutboxEventType = "bid.expired"
	EventBidCancelled OutboxEventType = "bid.cancelled"
	EventDealCreated  OutboxEventType = "deal.created"
	EventDealComplete OutboxEventType = "deal.completed"
	EventDealRefunded OutboxEventType = "deal.refunded"
)

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventBidSubmitted, EventBidFeePaid, EventBidAccepted, EventBidExpired,
		EventBidCancelled, EventDealCreated, EventDealComplete, EventDealRefunded:
		return true
	}
	return false
}

// OutboxAggregateType names the aggregate an event belongs to.
type OutboxAggregateType string

const (
	AggregateBid  OutboxAggregateType = "bid"
	AggregateDeal OutboxAggregateType = "deal"
)
