package interfaces

import "context"

// Flow is a schedulable unit of work.
type Flow interface {
	Name() string
	Run(ctx context.Context) error
}
