package logger

import "log/slog"

// Error records a single error under the key "error". A nil error
// produces an empty attribute that slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("tenant_id", id)
}

// TaskID records the task identifier under the key "task_id".
func TaskID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("task_id", id)
}

// TaskType records the task type under the key "task_type".
func TaskType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("task_type", t)
}

// Platform records the publishing platform under the key "platform".
func Platform(p string) slog.Attr {
	if p == "" {
		return slog.Attr{}
	}
	return slog.String("platform", p)
}
