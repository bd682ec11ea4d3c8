package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/bastion/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthentication logs an authentication event
	LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error

	// LogDataMutation logs a change to a managed resource
	LogDataMutation(ctx context.Context, eventType EventType, resourceType ResourceType, resourceID int64, message string) error
}

// NoopLogger discards every event
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, *AuditEvent) error { return nil }

func (NoopLogger) LogAuthentication(context.Context, EventType, *int64, string, EventStatus, string) error {
	return nil
}

func (NoopLogger) LogDataMutation(context.Context, EventType, ResourceType, int64, string) error {
	return nil
}

// LogrusLogger writes audit events as structured log entries on a dedicated
// logrus logger, typically pointed at its own sink.
type LogrusLogger struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewLogrusLogger creates an audit logger on top of logger
func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{logger: logger, now: time.Now}
}

// Log writes the event, filling request context fields from ctx
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}
	if event.IPAddress == "" {
		event.IPAddress = contextkeys.GetClientIP(ctx)
	}
	if event.UserID == nil {
		if raw := contextkeys.GetUserID(ctx); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				event.UserID = &id
			}
		}
	}

	fields := logrus.Fields{
		"audit":      true,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
		fields["resource_id"] = event.ResourceID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.logger.WithFields(fields).WithTime(event.Timestamp)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

func (l *LogrusLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	return l.Log(ctx, &AuditEvent{
		EventType: eventType,
		Status:    status,
		UserID:    userID,
		Username:  username,
		Message:   message,
	})
}

func (l *LogrusLogger) LogDataMutation(ctx context.Context, eventType EventType, resourceType ResourceType, resourceID int64, message string) error {
	return l.Log(ctx, &AuditEvent{
		EventType:    eventType,
		Status:       EventStatusSuccess,
		ResourceType: resourceType,
		ResourceID:   strconv.FormatInt(resourceID, 10),
		Message:      message,
	})
}
