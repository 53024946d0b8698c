package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusCompleted AssignmentStatus = "completed" // Set by the athlete or coach
	StatusSkipped   AssignmentStatus = "skipped"
)

// DailyTrainingAssignment is one concrete session for one athlete on one
// calendar date. It is a materialized view over periodization and the
// template catalog and is regenerated wholesale by the scheduler.
type DailyTrainingAssignment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID          primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	PlayerID          primitive.ObjectID `bson:"playerId" json:"playerId"`
	AnnualPlanID      primitive.ObjectID `bson:"annualPlanId" json:"annualPlanId"`
	WeekNumber        int                `bson:"weekNumber" json:"weekNumber"`
	AssignedDate      time.Time          `bson:"assignedDate" json:"assignedDate"` // UTC midnight
	DayOfWeek         int                `bson:"dayOfWeek" json:"dayOfWeek"`       // 0 = Sunday
	SessionType       SessionType        `bson:"sessionType" json:"sessionType"`
	SessionTemplateID primitive.ObjectID `bson:"sessionTemplateId" json:"sessionTemplateId"`
	EstimatedDuration int                `bson:"estimatedDuration" json:"estimatedDuration"` // Minutes, from the template
	Status            AssignmentStatus   `bson:"status" json:"status"`
	Period            string             `bson:"period" json:"period"`
	LearningPhase     string             `bson:"learningPhase" json:"learningPhase"`
	ClubSpeed         string             `bson:"clubSpeed" json:"clubSpeed"`
	Intensity         int                `bson:"intensity" json:"intensity"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// AssignmentKey is the uniqueness key of an assignment.
type AssignmentKey struct {
	PlayerID     primitive.ObjectID
	AssignedDate time.Time
	AnnualPlanID primitive.ObjectID
	SessionType  SessionType
}

// Key returns the uniqueness key.
func (a *DailyTrainingAssignment) Key() AssignmentKey {
	return AssignmentKey{
		PlayerID:     a.PlayerID,
		AssignedDate: DateOf(a.AssignedDate),
		AnnualPlanID: a.AnnualPlanID,
		SessionType:  a.SessionType,
	}
}
