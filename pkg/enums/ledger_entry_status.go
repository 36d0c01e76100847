package enums

// LedgerEntryStatus maps to the ledger_entry_status enum in Postgres.
type LedgerEntryStatus string

const (
	LedgerEntryStatusPending  LedgerEntryStatus = "pending"
	LedgerEntryStatusAccepted LedgerEntryStatus = "accepted"
	LedgerEntryStatusRejected LedgerEntryStatus = "rejected"
)

var validLedgerEntryStatuss = []LedgerEntryStatus{
	LedgerEntryStatusPending,
	LedgerEntryStatusAccepted,
	LedgerEntryStatusRejected,
}

// String implements fmt.Stringer.
func (l LedgerEntryStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerEntryStatus.
func (l LedgerEntryStatus) IsValid() bool {
	return known(validLedgerEntryStatuss, l)
}

// ParseLedgerEntryStatus converts raw input into a LedgerEntryStatus.
func ParseLedgerEntryStatus(value string) (LedgerEntryStatus, error) {
	return parse(validLedgerEntryStatuss, value, "ledger entry status")
}

// IsTerminal reports whether the status can no longer change.
func (l LedgerEntryStatus) IsTerminal() bool {
	return l == LedgerEntryStatusAccepted || l == LedgerEntryStatusRejected
}
