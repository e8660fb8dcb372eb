// Package middleware provides HTTP middleware for TutorPlan.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyUserEmail contextKey = "user_email"
	ctxKeyUserRole  contextKey = "user_role"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetUserContext stores authenticated user info in context.
func SetUserContext(ctx context.Context, email, role string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUserEmail, email)
	ctx = context.WithValue(ctx, ctxKeyUserRole, role)
	return ctx
}

// GetUserEmail extracts the authenticated user's email from context.
func GetUserEmail(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserEmail).(string); ok {
		return v
	}
	return ""
}

// GetUserRole extracts the authenticated user's role from context.
func GetUserRole(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserRole).(string); ok {
		return v
	}
	return ""
}
