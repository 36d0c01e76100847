package enums

// LedgerEntryKind maps to the ledger_entry_kind enum in Postgres.
type LedgerEntryKind string

const (
	LedgerEntryKindTransfer    LedgerEntryKind = "transfer"
	LedgerEntryKindTopUp       LedgerEntryKind = "topup"
	LedgerEntryKindOrderDebit  LedgerEntryKind = "order_debit"
	LedgerEntryKindOrderCredit LedgerEntryKind = "order_credit"
)

var validLedgerEntryKinds = []LedgerEntryKind{
	LedgerEntryKindTransfer,
	LedgerEntryKindTopUp,
	LedgerEntryKindOrderDebit,
	LedgerEntryKindOrderCredit,
}

// String implements fmt.Stringer.
func (l LedgerEntryKind) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerEntryKind.
func (l LedgerEntryKind) IsValid() bool {
	return known(validLedgerEntryKinds, l)
}

// ParseLedgerEntryKind converts raw input into a LedgerEntryKind.
func ParseLedgerEntryKind(value string) (LedgerEntryKind, error) {
	return parse(validLedgerEntryKinds, value, "ledger entry kind")
}
