package setting

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// duplicate key markers of the supported drivers, used when the dialector does not translate errors.
var uniqueViolationMarkers = []string{
	"UNIQUE constraint failed", // sqlite
	"Error 1062",               // mysql ER_DUP_ENTRY
	"Duplicate entry",          // mysql
	"SQLSTATE 23505",           // postgres unique_violation
	"duplicate key value",      // postgres
}

// isUniqueViolation reports whether err is the schema rejecting a duplicate setting name.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// IsPersistenceFailure reports whether err is a generic backend failure.
// Lookup misses, name conflicts, argument errors and a missing database are not.
func IsPersistenceFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrDBNil),
		errors.Is(err, ErrSettingNotFound),
		errors.Is(err, ErrSettingAlreadyExists),
		errors.Is(err, ErrSettingNameEmpty):
		return false
	default:
		return true
	}
}
