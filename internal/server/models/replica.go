package models

import "time"

// Replica is an issued token. It is unbound until its first resolution and
// then points at exactly one original forever.
type Replica struct {
	ID              string
	Category        Category
	Token           string
	Scanned         bool
	ScannedAt       *time.Time
	BoundOriginalID *string
	BatchID         *string
	CreatedAt       time.Time
}

// Bound reports whether the replica already carries a forward reference.
func (r *Replica) Bound() bool {
	return r.BoundOriginalID != nil && *r.BoundOriginalID != ""
}
