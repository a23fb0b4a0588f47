package model

import "time"

// RunSummary is what the journal keeps about a finished run.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Symbols        int
	Rows           int
	Failed         int
	DeliveryErrors []string
}

// Summarize reduces a report to its journal entry.
func (r *Report) Summarize(deliveryErrors []string) RunSummary {
	return RunSummary{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Symbols:        len(r.Rows) + len(r.Failures),
		Rows:           len(r.Rows),
		Failed:         len(r.Failures),
		DeliveryErrors: deliveryErrors,
	}
}
