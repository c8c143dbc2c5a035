package utils

import (
	"context"
)

type CustomContext struct {
	AppSource string
	CycleId   string
	Mailbox   string
}

type customContextKey struct{}

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey{}, customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey{}).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetCycleIdFromContext(ctx context.Context) string {
	return GetContext(ctx).CycleId
}

func GetMailboxFromContext(ctx context.Context) string {
	return GetContext(ctx).Mailbox
}

// WithCycle returns a child context carrying the cycle id and mailbox, the parent is left untouched
func WithCycle(ctx context.Context, cycleId, mailbox string) context.Context {
	parent := GetContext(ctx)
	return WithCustomContext(ctx, &CustomContext{
		AppSource: parent.AppSource,
		CycleId:   cycleId,
		Mailbox:   mailbox,
	})
}

func SetAppSourceInContext(ctx context.Context, appSource string) context.Context {
	parent := GetContext(ctx)
	return WithCustomContext(ctx, &CustomContext{
		AppSource: appSource,
		CycleId:   parent.CycleId,
		Mailbox:   parent.Mailbox,
	})
}
