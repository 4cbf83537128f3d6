package scope

import "gorm.io/gorm"

// TailFirst orders ledger rows newest first. The id tie-break keeps the
// ordering total when rows share a created_at timestamp.
func TailFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC, id DESC")
}

func OldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
