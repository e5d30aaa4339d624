package storage

import "errors"

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrInvalidKey    = errors.New("invalid key")
	ErrStorageInit   = errors.New("storage initialization failed")
	ErrFileOperation = errors.New("file operation failed")
)
