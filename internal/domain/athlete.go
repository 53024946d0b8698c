package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between caller roles carried in access tokens
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleCoach  Role = "coach"
	RolePlayer Role = "player"
)

// DefaultClubSpeedLevel is used when an athlete has no calibrated club speed.
const DefaultClubSpeedLevel = "CS90"

// Athlete is a player enrolled at an academy (tenant).
type Athlete struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID       primitive.ObjectID  `bson:"tenantId" json:"tenantId"`
	Name           string              `bson:"name" json:"name"`
	Category       string              `bson:"category" json:"category"`                                 // Tier used for template matching, e.g. "beginner".."elite"
	ClubSpeedLevel string              `bson:"clubSpeedLevel,omitempty" json:"clubSpeedLevel,omitempty"` // e.g. "CS90"
	Active         bool                `bson:"active" json:"active"`
	CurrentPlanID  *primitive.ObjectID `bson:"currentPlanId,omitempty" json:"currentPlanId,omitempty"` // Pointer to the current AnnualTrainingPlan
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// HasCurrentPlan reports whether the current-plan pointer is set.
func (a *Athlete) HasCurrentPlan() bool {
	return a.CurrentPlanID != nil && *a.CurrentPlanID != primitive.NilObjectID
}

// SpeedLevel returns the athlete's club speed level or the default one.
func (a *Athlete) SpeedLevel() string {
	if a.ClubSpeedLevel == "" {
		return DefaultClubSpeedLevel
	}
	return a.ClubSpeedLevel
}

// AthleteFilter narrows ListActive. Zero values mean "no restriction".
type AthleteFilter struct {
	TenantID  primitive.ObjectID
	PlayerIDs []primitive.ObjectID
}
