package redis

import "time"

type Config struct {
	ConnectionURL   string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL should be in the format "redis://:password@localhost:6379/0".
	ConnectTimeout  time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`          // ConnectTimeout bounds the whole connect-with-retries sequence.
	RetryAttempts   int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the number of connection attempts before giving up.
	RetryBackoffCap time.Duration `env:"REDIS_RETRY_BACKOFF_CAP" envDefault:"5s"`         // RetryBackoffCap caps the exponential backoff between attempts.
}
