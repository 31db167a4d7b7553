package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Unique violation messages, one per supported dialect. gorm only translates
// these into ErrDuplicatedKey when the dialector opts in, so the raw driver
// strings are matched as well.
var duplicateKeyMarkers = []string{
	"duplicate key value violates unique constraint", // postgres 23505
	"Error 1062",                                     // mysql
	"UNIQUE constraint failed",                       // sqlite
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
