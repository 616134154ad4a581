package auth

import (
	"context"
	"strings"
)

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user id.
// Blank ids are ignored so the context stays anonymous.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id carried by ctx, if any.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextResolver resolves the current user from the request context.
type ContextResolver struct{}

func (ContextResolver) CurrentUserID(ctx context.Context) (string, bool) {
	return UserID(ctx)
}

// ClaimsUserID extracts the subject from an API Gateway authorizer payload.
// Cognito and JWT authorizers put it under claims.sub; Lambda authorizers
// set principalId.
func ClaimsUserID(authorizer map[string]interface{}) string {
	if authorizer == nil {
		return ""
	}
	if claims, ok := authorizer["claims"].(map[string]interface{}); ok {
		if sub, ok := claims["sub"].(string); ok && strings.TrimSpace(sub) != "" {
			return strings.TrimSpace(sub)
		}
	}
	if jwt, ok := authorizer["jwt"].(map[string]interface{}); ok {
		if claims, ok := jwt["claims"].(map[string]interface{}); ok {
			if sub, ok := claims["sub"].(string); ok && strings.TrimSpace(sub) != "" {
				return strings.TrimSpace(sub)
			}
		}
	}
	if principal, ok := authorizer["principalId"].(string); ok {
		return strings.TrimSpace(principal)
	}
	return ""
}
