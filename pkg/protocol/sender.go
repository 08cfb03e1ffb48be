package protocol

import "context"

// MessageSender is the abstract send capability messaging node
// behaviors call out to. Sends are at-most-once per execution attempt;
// the engine does not deduplicate retries at this layer.
type MessageSender interface {
	SendText(ctx context.Context, recipientID, text string) error
	SendTemplate(ctx context.Context, recipientID string, template map[string]any) error
}
