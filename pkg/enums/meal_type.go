package enums

// MealType identifies the sitting a meal slot belongs to.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
)

var validMealTypes = []MealType{
	MealTypeBreakfast,
	MealTypeLunch,
	MealTypeDinner,
}

func (m MealType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MealType.
func (m MealType) IsValid() bool {
	return known(validMealTypes, m)
}

// ParseMealType converts raw input into a MealType.
func ParseMealType(value string) (MealType, error) {
	return parse(validMealTypes, value, "meal type")
}
