package domain

import "time"

// RefreshRun stores the outcome of one batch refresh. The full per-athlete
// report lives in object storage under ReportObjectKey when archiving is on.
type RefreshRun struct {
	ID                string         `bson:"_id" json:"id"` // uuid
	WindowStart       time.Time      `bson:"windowStart" json:"windowStart"`
	WindowEnd         time.Time      `bson:"windowEnd" json:"windowEnd"`
	DryRun            bool           `bson:"dryRun" json:"dryRun"`
	AthletesProcessed int            `bson:"athletesProcessed" json:"athletesProcessed"`
	Created           int            `bson:"created" json:"created"`
	Deleted           int            `bson:"deleted" json:"deleted"`
	Skipped           int            `bson:"skipped" json:"skipped"`
	Failed            int            `bson:"failed" json:"failed"`
	Deferred          int            `bson:"deferred" json:"deferred"`
	Claimed           int            `bson:"claimed" json:"claimed"`
	WeekendDays       int            `bson:"weekendDays" json:"weekendDays"`
	ByType            map[string]int `bson:"byType,omitempty" json:"byType,omitempty"`
	ReportObjectKey   string         `bson:"reportObjectKey,omitempty" json:"-"`
	StartedAt         time.Time      `bson:"startedAt" json:"startedAt"`
	FinishedAt        time.Time      `bson:"finishedAt" json:"finishedAt"`
}
