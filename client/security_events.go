package client

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventAuthentication = "authentication"
	EventCall           = "call"
)

// Event subtypes
const (
	SubtypeAuthAttempt  = "attempt"
	SubtypeAuthSuccess  = "success"
	SubtypeAuthFailure  = "failure"
	SubtypeCallExecute  = "execute"
	SubtypeCallComplete = "complete"
	SubtypeCallFailed   = "failed"
)

// Event outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
	OutcomeAttempt = "attempt"
)

// Event severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// SecurityEvent is a structured audit record for authentication and calls.
type SecurityEvent struct {
	Timestamp string `json:"timestamp"` // RFC 3339 UTC
	EventType string `json:"event_type"`
	Subtype   string `json:"subtype"`
	Severity  string `json:"severity"`

	User          string `json:"user,omitempty"`
	Source        string `json:"source"`
	Target        string `json:"target"`
	CorrelationID string `json:"correlation_id"`

	Outcome string         `json:"outcome"`
	Details map[string]any `json:"details,omitempty"`
}

// SecurityLogger writes SecurityEvents for one client.
// A nil logger discards every event.
type SecurityLogger struct {
	logger        *slog.Logger
	user          string
	target        string
	correlationID string
}

// NewSecurityLogger creates a logger for the client talking to target.
// Every event it writes shares one random correlation ID.
func NewSecurityLogger(logger *slog.Logger, target string) *SecurityLogger {
	return &SecurityLogger{
		logger:        logger,
		target:        target,
		correlationID: uuid.New().String(),
	}
}

// SetUser records the user name included in later events.
func (l *SecurityLogger) SetUser(user string) {
	l.user = user
}

// CorrelationID returns the ID shared by this logger's events.
func (l *SecurityLogger) CorrelationID() string {
	return l.correlationID
}

// LogEvent constructs and logs a security event.
func (l *SecurityLogger) LogEvent(eventType, subtype, severity, outcome string, details map[string]any) {
	if l == nil || l.logger == nil {
		return
	}

	if details == nil {
		details = make(map[string]any)
	}
	event := &SecurityEvent{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EventType:     eventType,
		Subtype:       subtype,
		Severity:      severity,
		User:          l.user,
		Source:        "go-msfrpc",
		Target:        l.target,
		CorrelationID: l.correlationID,
		Outcome:       outcome,
		Details:       details,
	}

	switch severity {
	case SeverityWarning:
		l.logger.Warn("SecurityEvent", "event", event)
	case SeverityError:
		l.logger.Error("SecurityEvent", "event", event)
	default:
		l.logger.Info("SecurityEvent", "event", event)
	}
}

// LogAuthentication logs authentication events.
func (l *SecurityLogger) LogAuthentication(subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventAuthentication, subtype, severity, outcome, details)
}

// LogCall logs RPC call events.
func (l *SecurityLogger) LogCall(subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventCall, subtype, severity, outcome, details)
}

// String returns the JSON representation of the event.
func (e *SecurityEvent) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}
