// Package policy holds the single authorization rule of the API: a user only sees what they own.
package policy

import "gorm.io/gorm"

// OwnedBy is a gorm scope restricting a query to rows of the given owner.
func OwnedBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// ByIDOwnedBy restricts a query to one row of the given owner; the id alone is never trusted.
func ByIDOwnedBy(id, userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ? AND user_id = ?", id, userID)
	}
}
