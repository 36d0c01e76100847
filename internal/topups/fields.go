package topups

import (
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

// Action names a write a caller can perform on a top-up.
type Action string

const (
	ActionCreate Action = "create"
	ActionSettle Action = "settle"
)

var (
	createFields = []string{"amount", "description", "document_ref"}
	settleFields = []string{"status"}
)

// WritableFields returns the request fields a caller may set for action.
// Administrators can settle; everyone can create. Anything else is read-only.
func WritableFields(isSuperuser bool, action Action) []string {
	switch action {
	case ActionCreate:
		return append([]string(nil), createFields...)
	case ActionSettle:
		if isSuperuser {
			return append([]string(nil), settleFields...)
		}
	}
	return nil
}

// CheckFields rejects any provided field outside WritableFields.
func CheckFields(isSuperuser bool, action Action, provided []string) error {
	allowed := make(map[string]struct{})
	for _, field := range WritableFields(isSuperuser, action) {
		allowed[field] = struct{}{}
	}

	var readOnly []string
	for _, field := range provided {
		if _, ok := allowed[field]; !ok {
			readOnly = append(readOnly, field)
		}
	}
	if len(readOnly) == 0 {
		return nil
	}
	sort.Strings(readOnly)
	return pkgerrors.New(pkgerrors.CodeValidation, "read-only fields: "+strings.Join(readOnly, ", ")).
		WithDetails(map[string]any{"read_only": readOnly})
}
