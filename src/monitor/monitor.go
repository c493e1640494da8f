package monitor

import "context"

// Stats is one sample of backing-store health. It is the payload carried by
// system metric events.
type Stats struct {
	AverageQueryTimeMS float64 `json:"average_query_time_ms"`
	SlowQueries        int64   `json:"slow_queries"`
	ErrorRate          float64 `json:"error_rate"`
	PoolUtilization    float64 `json:"pool_utilization"`
}

// Monitor produces periodic health samples for the system metrics feed.
type Monitor interface {
	Stats(ctx context.Context) (Stats, error)
}

// Static is a Monitor that always reports the same sample. It keeps the
// system metrics feed alive when no database is configured, and stands in
// for a real pool in tests.
type Static struct {
	Sample Stats
}

func (s Static) Stats(context.Context) (Stats, error) {
	return s.Sample, nil
}
