package types

import "fmt"

// ValidateUserID checks the id the engine stamps into every row.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("userId cannot be empty")
	}
	return nil
}

// ValidateRecordType rejects unregistered types before any cycle work runs.
func ValidateRecordType(rt RecordType) error {
	if rt == "" {
		return fmt.Errorf("recordType cannot be empty")
	}
	if !IsKnown(rt) {
		return fmt.Errorf("unknown recordType %q", rt)
	}
	return nil
}
