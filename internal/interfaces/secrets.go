package interfaces

import "context"

// SecretSource resolves a named secret. Implementations return
// secrets.ErrNotFound when the name is unknown to them.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, error)
}
