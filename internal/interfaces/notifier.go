package interfaces

import (
	"context"

	"humpday-trader/internal/types"
)

// Notifier posts reports to a chat destination. Channel is a logical name
// resolved by the sink.
type Notifier interface {
	PostMessage(ctx context.Context, channel string, msg types.Message) error
	PostImage(ctx context.Context, channel string, img types.Image) error
}
