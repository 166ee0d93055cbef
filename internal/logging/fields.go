package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService   = "service"
	FieldLogID     = "log_id"
	FieldEventType = "event_type"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldSubject   = "subject"
	FieldReason    = "reason"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// LogID returns a slog attribute for the event log ID.
func LogID(id string) slog.Attr {
	return slog.String(FieldLogID, id)
}

// EventType returns a slog attribute for the webhook event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Subject returns a slog attribute for a queue subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Reason returns a slog attribute for a rejection reason.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}
