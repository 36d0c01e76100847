package models

// All lists every persisted model, used by SQLite test fixtures.
func All() []any {
	return []any{
		&User{},
		&LedgerEntry{},
		&MenuItem{},
		&MealSlot{},
		&PaymentProfile{},
		&MealOrder{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
