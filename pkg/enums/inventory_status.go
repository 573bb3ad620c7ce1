package enums

import "fmt"

// InventoryStatus marks whether a dealer's stock record is sellable.
type InventoryStatus string

const (
	InventoryStatusActive   InventoryStatus = "active"
	InventoryStatusInactive InventoryStatus = "inactive"
)

// String implements fmt.Stringer.
func (i InventoryStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryStatus.
func (i InventoryStatus) IsValid() bool {
	return i == InventoryStatusActive || i == InventoryStatusInactive
}

// ParseInventoryStatus converts raw input into an InventoryStatus.
func ParseInventoryStatus(value string) (InventoryStatus, error) {
	switch InventoryStatus(value) {
	case InventoryStatusActive:
		return InventoryStatusActive, nil
	case InventoryStatusInactive:
		return InventoryStatusInactive, nil
	}
	return "", fmt.Errorf("invalid inventory status %q", value)
}
