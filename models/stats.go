package models

import "time"

// ImportStats holds the counters of one import run. It is owned by the
// importer goroutine and read by the reporter after the run settles.
type ImportStats struct {
	Lines           int
	ListingsCreated int
	OwnersCreated   int
	OwnersReused    int
	Failed          int
	ParseFailures   int
	StoreFailures   int
	StartedAt       time.Time
	Duration        time.Duration
}

// RecordsPerSecond is the listing throughput over the run duration.
func (s *ImportStats) RecordsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return round2(float64(s.ListingsCreated) / s.Duration.Seconds())
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
