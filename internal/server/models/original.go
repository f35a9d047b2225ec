package models

import "time"

// Original is a one-time consumable destination. Once Scanned it carries
// the replica it was handed to and never becomes available again.
type Original struct {
	ID        string
	Category  Category
	URL       string
	Scanned   bool
	ScannedAt *time.Time
	ReplicaID *string
	CreatedAt time.Time
}
