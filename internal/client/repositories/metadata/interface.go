package metadata

import "context"

// Repository is a small key/value store for per-device state that is not
// part of the message log: the sync checkpoint, the user profile, and the
// account salt.
type Repository interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name string, value string) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}
