package models

// Stats summarizes both pools.
type Stats struct {
	Brands          int `json:"brands"`
	Types           int `json:"types"`
	Originals       int `json:"originals"`
	FreeOriginals   int `json:"free_originals"`
	Replicas        int `json:"replicas"`
	ScannedReplicas int `json:"scanned_replicas"`
}

// CategoryStats is the inventory of a single category.
type CategoryStats struct {
	BrandID   string `json:"brand_id"`
	TypeID    string `json:"type_id"`
	Originals int    `json:"originals"`
	Free      int    `json:"free"`
	Replicas  int    `json:"replicas"`
	Scanned   int    `json:"scanned"`
}
