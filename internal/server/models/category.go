// Package models defines server-side data models persisted in the database.
package models

import "fmt"

// Category is the (brand, type) pair partitioning both pools. A replica can
// only ever be bound to an original of the same category.
type Category struct {
	BrandID string
	TypeID  string
}

func (c Category) String() string {
	return fmt.Sprintf("%s/%s", c.BrandID, c.TypeID)
}
