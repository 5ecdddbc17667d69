package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Probe is one readiness dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Result struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProbeRunner evaluates all registered probes with a shared timeout.
type ProbeRunner struct {
	probes  []Probe
	timeout time.Duration
}

func NewProbeRunner(timeout time.Duration, probes ...Probe) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{probes: probes, timeout: timeout}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []Result) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ready := true
	results := make([]Result, 0, len(p.probes))
	for _, probe := range p.probes {
		res := Result{Name: probe.Name, Status: "ok"}
		if err := probe.Check(ctx); err != nil {
			ready = false
			res.Status = "unavailable"
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return ready, results
}

// DatabaseProbe pings the SQL store.
func DatabaseProbe(db *gorm.DB) Probe {
	return Probe{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// RedisProbe pings the lockout/rate-limit store.
func RedisProbe(client redis.UniversalClient) Probe {
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
