package httpx

import "context"

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
)

// SubjectFromContext returns the authenticated principal set by AuthnMiddleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(CtxKeySubject).(string)
	return sub, ok && sub != ""
}

func contextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, CtxKeySubject, subject)
}
