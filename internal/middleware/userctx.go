package middleware

import "context"

type userKey struct{}

// UserCtx is the authenticated caller.
type UserCtx struct {
	UserID string
	Role   string
	Email  string
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) UserCtx {
	if v := ctx.Value(userKey{}); v != nil {
		if u, ok := v.(UserCtx); ok {
			return u
		}
	}
	return UserCtx{}
}

// UserID returns the caller's id, or false outside an authenticated route.
func UserID(ctx context.Context) (string, bool) {
	u := FromCtx(ctx)
	return u.UserID, u.UserID != ""
}
