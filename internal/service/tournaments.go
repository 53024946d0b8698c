package service

import (
	"sort"
	"time"

	"golfacademy/training-planner/internal/domain"
)

// TournamentInput places a competition in a season being generated.
type TournamentInput struct {
	Name       string
	Date       time.Time
	Importance domain.TournamentImportance
}

// scheduleTournaments reshapes the drafted weeks around each tournament. The
// ToppingWeeks weeks before the tournament week become period S at peak
// volume and the tournament week becomes period T at taper volume. Topping
// never reaches back past the season start. Where one tournament's topping
// overlaps another's tournament week, the tournament week wins.
func scheduleTournaments(seasonStart, seasonEnd time.Time, weeks []domain.Periodization, tournaments []TournamentInput) ([]domain.ScheduledTournament, error) {
	if len(tournaments) == 0 {
		return nil, nil
	}

	// 1. Locate every tournament week
	index := make(map[string]int, len(weeks))
	for i := range weeks {
		index[weeks[i].WeekStart.Format(domain.DateLayout)] = i
	}
	type placed struct {
		at      int
		topping int
		sched   domain.ScheduledTournament
	}
	all := make([]placed, 0, len(tournaments))
	for _, t := range tournaments {
		if !t.Importance.Valid() {
			return nil, domain.NewConfigurationError(domain.ErrInvalidTournament, "importance %q not A, B or C", t.Importance)
		}
		day := domain.DateOf(t.Date)
		if t.Date.IsZero() || day.Before(seasonStart) || !day.Before(seasonEnd) {
			return nil, domain.NewConfigurationError(domain.ErrInvalidTournament, "date %s outside season %s..%s",
				day.Format(domain.DateLayout), seasonStart.Format(domain.DateLayout), seasonEnd.Format(domain.DateLayout))
		}
		at, ok := index[domain.WeekMonday(day).Format(domain.DateLayout)]
		if !ok {
			return nil, domain.NewConfigurationError(domain.ErrInvalidTournament, "no plan week for %s", day.Format(domain.DateLayout))
		}
		from := at - t.Importance.ToppingWeeks()
		if from < 0 {
			from = 0
		}
		all = append(all, placed{
			at:      at,
			topping: from,
			sched: domain.ScheduledTournament{
				Name:              t.Name,
				Date:              day,
				Importance:        t.Importance,
				WeekNumber:        weeks[at].WeekNumber,
				ToppingStartWeek:  weeks[from].WeekNumber,
				ToppingWeeks:      at - from,
				TaperingStartDate: day.AddDate(0, 0, -t.Importance.TaperingDays()),
				TaperingDays:      t.Importance.TaperingDays(),
			},
		})
	}

	// 2. Topping weeks, then tournament weeks
	for _, p := range all {
		for i := p.topping; i < p.at; i++ {
			weeks[i].Period = "S"
			weeks[i].VolumeIntensity = domain.IntensityPeak
		}
	}
	for _, p := range all {
		weeks[p.at].Period = "T"
		weeks[p.at].VolumeIntensity = domain.IntensityTaper
	}

	out := make([]domain.ScheduledTournament, len(all))
	for i, p := range all {
		out[i] = p.sched
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
