package sms

import "context"

// Sender delivers one SMS to one recipient. Implementations are
// best-effort; callers log failures and move on.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}
