// Package services holds the SoloDesk domain operations: the project/task archive cascade,
// progress and completion bookkeeping, receipts, invoices and notifications.
// Every operation is owner scoped and returns *apperr.Error values.
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"gorm.io/gorm"
)

// Clock returns the current time. Tests substitute a fixed one.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func ptrTime(t time.Time) *time.Time { return &t }

func ptrUint(v uint) *uint { return &v }

// lookupErr turns a gorm lookup error into NotFound or Dependency.
func lookupErr(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Dependency("database error", err)
}

// isDuplicate matches unique violations from both postgres and sqlite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// likePattern builds a case-insensitive LIKE pattern usable with LOWER(column).
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// sortDirection maps "asc"/"desc" query values, defaulting to desc.
func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}
