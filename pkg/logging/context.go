package logging

import (
	"context"
)

const (
	TraceIDKey     = "trace_id"
	RequestIDKey   = "request_id"
	ConfigIDKey    = "config_id"
	ServiceNameKey = "service_name"
	ActorKey       = "actor"
)

type contextKey string

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey(RequestIDKey), requestID)
}

// WithConfigID tags log lines emitted while evaluating one alert configuration.
func WithConfigID(ctx context.Context, configID string) context.Context {
	return context.WithValue(ctx, contextKey(ConfigIDKey), configID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

// WithActor records who initiated a change, for audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, contextKey(ActorKey), actor)
}

func GetActor(ctx context.Context) string {
	if actor := stringValue(ctx, ActorKey); actor != "" {
		return actor
	}
	return "system"
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func stringValue(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	for _, key := range []string{TraceIDKey, RequestIDKey, ConfigIDKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
