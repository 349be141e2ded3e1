package metrics

import "fmt"

// Tag creates a formatted tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// TierTag creates a cache tier tag (hot/persistent).
func TierTag(tier string) string {
	return Tag("tier", tier)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// ClassTag creates a failure class tag.
func ClassTag(class string) string {
	return Tag("class", class)
}

// StatusTag creates a status tag (hit/miss/stale/error).
func StatusTag(status string) string {
	return Tag("status", status)
}
