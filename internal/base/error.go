package base

import "errors"

var (
	ErrInvalidOffset      = errors.New("invalid offset: out of bounds")
	ErrInvalidMagicNumber = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("invalid format version")
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidChecksum    = errors.New("invalid checksum")
	ErrPageFull           = errors.New("page full")
	ErrCorruption         = errors.New("data corruption detected")
	ErrOutOfSpace         = errors.New("page allocation exhausted: database size limit reached")
)
