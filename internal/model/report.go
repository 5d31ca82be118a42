package model

import "time"

// Report is one analyze run as handed to report sinks.
type Report struct {
	RunID       string          `json:"run_id"`
	Token       string          `json:"token"`
	GeneratedAt time.Time       `json:"generated_at"`
	Pools       []PoolPositions `json:"pools"`
}
