package service

import (
	"hash/fnv"
	"time"

	"golfacademy/training-planner/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultWednesdayTestProbability is the share of Wednesdays that become tests.
const DefaultWednesdayTestProbability = 0.3

// SessionPolicy picks the session type of a weekday.
type SessionPolicy struct {
	WednesdayTestProbability float64
}

// SessionTypeFor returns the session type for the athlete on date, and false
// on weekends. The Wednesday draw is seeded by (player, date) so repeated
// refreshes agree.
func (p SessionPolicy) SessionTypeFor(playerID primitive.ObjectID, date time.Time) (domain.SessionType, bool) {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return "", false
	case time.Friday:
		return domain.SessionRecovery, true
	case time.Wednesday:
		if seededDraw(playerID, date) < p.WednesdayTestProbability {
			return domain.SessionTest, true
		}
		return domain.SessionTraining, true
	default:
		return domain.SessionTraining, true
	}
}

// seededDraw maps (player, date) onto [0, 1).
func seededDraw(playerID primitive.ObjectID, date time.Time) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(playerID.Hex()))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(domain.DateOf(date).Format(domain.DateLayout)))
	return float64(mix64(h.Sum64())>>11) / float64(uint64(1)<<53)
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
