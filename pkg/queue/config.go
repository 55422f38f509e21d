package queue

import "time"

// DefaultTimezone is the canonical tenant timezone applied when nothing
// more specific is configured. All fixed business triggers anchor their
// wall-clock fields here.
const DefaultTimezone = "Europe/Paris"

// Config holds the configuration for the task queue and its worker.
type Config struct {
	PullInterval       time.Duration `env:"QUEUE_PULL_INTERVAL" envDefault:"5s"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	MaxConcurrentTasks int           `env:"QUEUE_MAX_CONCURRENT_TASKS" envDefault:"10"`
	Timezone           string        `env:"QUEUE_TIMEZONE" envDefault:"Europe/Paris"`
}
