package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLedgerEntry OutboxAggregateType = "ledger_entry"
	AggregateMealOrder   OutboxAggregateType = "meal_order"
	AggregateMealSlot    OutboxAggregateType = "meal_slot"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLedgerEntry,
	AggregateMealOrder,
	AggregateMealSlot,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return known(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventCreditTransferred OutboxEventType = "credit_transferred"
	EventTopUpRequested    OutboxEventType = "topup_requested"
	EventTopUpSettled      OutboxEventType = "topup_settled"
	EventMealOrderCreated  OutboxEventType = "meal_order_created"
	EventMealOrderCanceled OutboxEventType = "meal_order_canceled"
	EventMealSlotCreated   OutboxEventType = "meal_slot_created"
	EventMealSlotDeleted   OutboxEventType = "meal_slot_deleted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCreditTransferred,
	EventTopUpRequested,
	EventTopUpSettled,
	EventMealOrderCreated,
	EventMealOrderCanceled,
	EventMealSlotCreated,
	EventMealSlotDeleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return known(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
