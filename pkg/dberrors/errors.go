package dberrors

import "errors"

var (
	ErrNotFound        = errors.New("stones: key not found")
	ErrClosed          = errors.New("stones: closed")
	ErrInvalidArgument = errors.New("stones: invalid argument")
	ErrCorrupted       = errors.New("stones: corrupted sstable")
	ErrUnsorted        = errors.New("stones: records are not in ascending key order")
)
