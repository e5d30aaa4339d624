package storage

// Store is the small durable key-value surface the consumer persists through.
// It is injected rather than reached as ambient global state so callers are
// testable without a real persistence layer.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error

	Init() error
	Close() error
	Backup() error
}
