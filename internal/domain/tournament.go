package domain

import "time"

// TournamentImportance ranks a competition. A events get the longest
// build-up and taper.
type TournamentImportance string

const (
	ImportanceA TournamentImportance = "A"
	ImportanceB TournamentImportance = "B"
	ImportanceC TournamentImportance = "C"
)

// Valid reports whether i is one of A, B or C.
func (i TournamentImportance) Valid() bool {
	return i == ImportanceA || i == ImportanceB || i == ImportanceC
}

// ToppingWeeks is the number of peak weeks leading into the tournament week.
func (i TournamentImportance) ToppingWeeks() int {
	switch i {
	case ImportanceA:
		return 3
	case ImportanceB:
		return 2
	default:
		return 1
	}
}

// TaperingDays is how many days before the tournament the taper starts.
func (i TournamentImportance) TaperingDays() int {
	switch i {
	case ImportanceA:
		return 7
	case ImportanceB:
		return 5
	default:
		return 3
	}
}

// ScheduledTournament is a tournament placed in a plan's season together
// with the weeks it reshaped.
type ScheduledTournament struct {
	Name              string               `bson:"name,omitempty" json:"name,omitempty"`
	Date              time.Time            `bson:"date" json:"date"`
	Importance        TournamentImportance `bson:"importance" json:"importance"`
	WeekNumber        int                  `bson:"weekNumber" json:"weekNumber"` // ISO week, period T
	ToppingStartWeek  int                  `bson:"toppingStartWeek" json:"toppingStartWeek"`
	ToppingWeeks      int                  `bson:"toppingWeeks" json:"toppingWeeks"` // fewer near the season start
	TaperingStartDate time.Time            `bson:"taperingStartDate" json:"taperingStartDate"`
	TaperingDays      int                  `bson:"taperingDays" json:"taperingDays"`
}
