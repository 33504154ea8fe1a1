package http

import (
	"context"

	"github.com/Axelpuff/schedassist/internal/calendar"
)

type contextKey string

const (
	credentialContextKey     contextKey = "credential"
	conversationIDContextKey contextKey = "conversation_id"
)

// ContextWithCredential returns a derived context carrying the caller's
// calendar credential.
func ContextWithCredential(ctx context.Context, cred calendar.Credential) context.Context {
	return context.WithValue(ctx, credentialContextKey, cred)
}

// CredentialFromContext extracts the calendar credential from context if
// available.
func CredentialFromContext(ctx context.Context) (calendar.Credential, bool) {
	cred, ok := ctx.Value(credentialContextKey).(calendar.Credential)
	return cred, ok
}

// ContextWithConversationID injects the conversation identifier resolved from
// the request path.
func ContextWithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationIDContextKey, id)
}

// ConversationIDFromContext extracts a conversation identifier previously
// associated with the context.
func ConversationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conversationIDContextKey).(string)
	return id, ok
}
