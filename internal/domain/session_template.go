package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionType classifies a training session.
type SessionType string

const (
	SessionTraining SessionType = "training"
	SessionTest     SessionType = "test"
	SessionRecovery SessionType = "recovery"
	SessionTeknikk  SessionType = "teknikk"
	SessionFysisk   SessionType = "fysisk"
	SessionGolfslag SessionType = "golfslag"
	SessionSpill    SessionType = "spill"
	SessionMental   SessionType = "mental"
)

// SessionTemplate is a reusable, tenant-scoped blueprint for a session.
// Templates are authored elsewhere; the scheduler only reads them.
type SessionTemplate struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID      primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	Name          string             `bson:"name" json:"name"`
	SessionType   SessionType        `bson:"sessionType" json:"sessionType"`
	Tier          string             `bson:"tier" json:"tier"`         // Matches Athlete.Category
	Duration      int                `bson:"duration" json:"duration"` // Minutes
	CurriculumRef string             `bson:"curriculumRef,omitempty" json:"curriculumRef,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
