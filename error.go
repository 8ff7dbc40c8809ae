package voron

import (
	"errors"

	"voron/internal/base"
)

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrKeyEmpty       = errors.New("key is empty")
	ErrKeyTooLarge    = errors.New("key too large")
	ErrValueTooLarge  = errors.New("value too large")
	ErrDatabaseClosed = errors.New("database is closed")
	ErrTxClosed       = errors.New("transaction already committed or rolled back")
	ErrTxReadOnly     = errors.New("transaction is read-only")

	ErrCorruption         = base.ErrCorruption
	ErrInvalidOffset      = base.ErrInvalidOffset
	ErrInvalidMagicNumber = base.ErrInvalidMagicNumber
	ErrInvalidVersion     = base.ErrInvalidVersion
	ErrInvalidPageSize    = base.ErrInvalidPageSize
	ErrInvalidChecksum    = base.ErrInvalidChecksum
	ErrPageFull           = base.ErrPageFull
	ErrOutOfSpace         = base.ErrOutOfSpace
)
