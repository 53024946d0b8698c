package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnnualTrainingPlan is the root aggregate of one athlete's season.
// Plans are never mutated after creation; a new plan supersedes the old one
// by moving the athlete's current-plan pointer.
type AnnualTrainingPlan struct {
	ID                primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	TenantID          primitive.ObjectID    `bson:"tenantId" json:"tenantId"`
	PlayerID          primitive.ObjectID    `bson:"playerId" json:"playerId"`
	SeasonStartDate   time.Time             `bson:"seasonStartDate" json:"seasonStartDate"`
	SeasonEndDate     time.Time             `bson:"seasonEndDate" json:"seasonEndDate"` // Exclusive
	SeasonLengthWeeks int                   `bson:"seasonLengthWeeks" json:"seasonLengthWeeks"`
	Phases            []PhaseWindow         `bson:"phases" json:"phases"`
	Tournaments       []ScheduledTournament `bson:"tournaments,omitempty" json:"tournaments,omitempty"`
	CreatedAt         time.Time             `bson:"createdAt" json:"createdAt"`
}

// Covers reports whether the date falls inside the season.
func (p *AnnualTrainingPlan) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(p.SeasonStartDate) && d.Before(p.SeasonEndDate)
}
