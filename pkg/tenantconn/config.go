package tenantconn

import "time"

// Config represents the configuration for the tenant connection manager.
type Config struct {
	ConnectionURL  string        `env:"MONGODB_URL,required"`                     // ConnectionURL is the shared storage endpoint all tenant databases live on.
	DatabasePrefix string        `env:"TENANT_DB_PREFIX" envDefault:"tenant_"`    // DatabasePrefix is prepended to the tenant identifier to form the database name.
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"` // ConnectTimeout bounds how long opening a tenant connection may take.
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"10"`    // MaxPoolSize is the per-tenant driver pool upper bound.
	MinPoolSize    uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"0"`     // MinPoolSize is the per-tenant driver pool lower bound.
	RetryWrites    bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`   // RetryWrites specifies whether the driver retries write operations.
	RetryReads     bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`    // RetryReads specifies whether the driver retries read operations.
	IdleTimeout    time.Duration `env:"TENANT_IDLE_TIMEOUT" envDefault:"30m"`     // IdleTimeout is how long a tenant connection may go unused before the sweep closes it.
	SweepInterval  time.Duration `env:"TENANT_SWEEP_INTERVAL" envDefault:"5m"`    // SweepInterval is how often the idle sweep runs.
}
