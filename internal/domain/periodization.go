package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Periodization is one week of a plan's season tagged with its phase.
// Rows are append-only: a correction inserts a newer row for the same week
// and readers always take the most recently created one.
type Periodization struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID        primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	PlayerID        primitive.ObjectID `bson:"playerId" json:"playerId"`
	AnnualPlanID    primitive.ObjectID `bson:"annualPlanId" json:"annualPlanId"`
	PhaseType       PhaseType          `bson:"phaseType" json:"phaseType"`
	Period          string             `bson:"period" json:"period"`           // E, G, S or T
	WeekNumber      int                `bson:"weekNumber" json:"weekNumber"`   // ISO week, 1-53
	WeekStart       time.Time          `bson:"weekStart" json:"weekStart"`     // Monday of the ISO week
	WeekInPhase     int                `bson:"weekInPhase" json:"weekInPhase"` // 1-based
	WeeklyHours     float64            `bson:"weeklyHours" json:"weeklyHours"`
	LearningPhase   string             `bson:"learningPhase" json:"learningPhase"`
	VolumeIntensity VolumeIntensity    `bson:"volumeIntensity" json:"volumeIntensity"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// LatestPerWeek keeps the most recently created row of every week number,
// ordered by week start.
func LatestPerWeek(rows []Periodization) []Periodization {
	latest := make(map[int]Periodization, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.WeekNumber]
		if !ok || NewerThan(r, cur) {
			latest[r.WeekNumber] = r
		}
	}
	out := make([]Periodization, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sortByWeekStart(out)
	return out
}

// NewerThan orders rows by createdAt, falling back to the ObjectID so that
// rows created in the same instant still resolve deterministically.
func NewerThan(a, b Periodization) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() > b.ID.Hex()
}

func sortByWeekStart(rows []Periodization) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].WeekStart.Before(rows[j].WeekStart) })
}
