package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup or an ownership-checked mutation matches no row
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write violates a unique constraint
var ErrConflict = errors.New("record already exists")

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
