package enums

// OutboxEventType names the domain events persisted through the outbox.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order.created"
	EventOrderPaid            OutboxEventType = "order.paid"
	EventOrderCancelled       OutboxEventType = "order.cancelled"
	EventOrderExpired         OutboxEventType = "order.expired"
	EventOrderReturnRequested OutboxEventType = "order.return_requested"
	EventOrderReturned        OutboxEventType = "order.returned"
	EventOrderStatusChanged   OutboxEventType = "order.status_changed"
)

// IsValid reports whether the value is a known event type.
func (t OutboxEventType) IsValid() bool {
	switch t {
	case EventOrderCreated,
		EventOrderPaid,
		EventOrderCancelled,
		EventOrderExpired,
		EventOrderReturnRequested,
		EventOrderReturned,
		EventOrderStatusChanged:
		return true
	default:
		return false
	}
}

// OutboxAggregateType names the aggregate a domain event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// IsValid reports whether the value is a known aggregate type.
func (t OutboxAggregateType) IsValid() bool {
	return t == AggregateOrder
}

// OutboxDLQErrorReason classifies why an event landed in the dead letter queue.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value is a known DLQ reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	default:
		return false
	}
}
