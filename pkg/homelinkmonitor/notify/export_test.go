package notify

import "context"

// WithRunner exposes the command runner override to the black-box tests.
func WithRunner(r func(ctx context.Context, name string, args ...string) error, path string) Option {
	return withRunner(r, path)
}
