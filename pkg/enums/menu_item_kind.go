package enums

// MenuItemKind separates main dishes from sides in the catalog.
type MenuItemKind string

const (
	MenuItemKindFood MenuItemKind = "food"
	MenuItemKindSide MenuItemKind = "side"
)

var validMenuItemKinds = []MenuItemKind{
	MenuItemKindFood,
	MenuItemKindSide,
}

func (m MenuItemKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MenuItemKind.
func (m MenuItemKind) IsValid() bool {
	return known(validMenuItemKinds, m)
}

// ParseMenuItemKind converts raw input into a MenuItemKind.
func ParseMenuItemKind(value string) (MenuItemKind, error) {
	return parse(validMenuItemKinds, value, "menu item kind")
}
