package interfaces

import "context"

type TransactionNotifier interface {
	NotifyCompletion(ctx context.Context, code string) bool
}
