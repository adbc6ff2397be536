package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// SubjectKey is the context key for the billed identity.
	SubjectKey contextKey = "subject"

	// AgentKey is the context key for agent identifiers.
	AgentKey contextKey = "agent"

	// TierKey is the context key for tier names.
	TierKey contextKey = "tier"

	// ReservationKey is the context key for ledger reservation IDs.
	ReservationKey contextKey = "reservation_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSubject adds the billed identity to the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject retrieves the billed identity from the context.
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(SubjectKey).(string); ok {
		return subject
	}
	return ""
}

// WithAgent adds an agent identifier to the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, AgentKey, agent)
}

// GetAgent retrieves the agent identifier from the context.
func GetAgent(ctx context.Context) string {
	if agent, ok := ctx.Value(AgentKey).(string); ok {
		return agent
	}
	return ""
}

// WithTier adds a tier name to the context.
func WithTier(ctx context.Context, tier string) context.Context {
	return context.WithValue(ctx, TierKey, tier)
}

// GetTier retrieves the tier name from the context.
func GetTier(ctx context.Context) string {
	if tier, ok := ctx.Value(TierKey).(string); ok {
		return tier
	}
	return ""
}

// WithReservation adds a ledger reservation ID to the context.
func WithReservation(ctx context.Context, reservationID string) context.Context {
	return context.WithValue(ctx, ReservationKey, reservationID)
}

// GetReservation retrieves the ledger reservation ID from the context.
func GetReservation(ctx context.Context) string {
	if reservationID, ok := ctx.Value(ReservationKey).(string); ok {
		return reservationID
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if subject := GetSubject(ctx); subject != "" {
		fields = append(fields, "subject", subject)
	}
	if agent := GetAgent(ctx); agent != "" {
		fields = append(fields, "agent", agent)
	}
	if tier := GetTier(ctx); tier != "" {
		fields = append(fields, "tier", tier)
	}
	if reservationID := GetReservation(ctx); reservationID != "" {
		fields = append(fields, "reservation_id", reservationID)
	}

	return fields
}
