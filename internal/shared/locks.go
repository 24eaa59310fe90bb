package shared

import "fmt"

// WashLockKey builds the redis key guarding the wash of one fulfillment.
func WashLockKey(fulfillmentID string) string {
	return fmt.Sprintf("costwash:fulfillment:%s:lock", fulfillmentID)
}
