// Package logger builds the process-wide slog.Logger and provides
// attribute helpers for the identifiers that recur across the pipeline
// (tenant, task, platform).
//
//	log := logger.NewFromEnv(logger.WithAttr(slog.String("service", "pipeline")))
//	log.Info("task completed", logger.TaskType(task.Type), logger.TaskID(task.ID))
//
// Defaults are JSON output at info level; LOG_LEVEL and LOG_FORMAT
// override them.
package logger
