package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golfacademy/training-planner/internal/app"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cliFixture struct {
	t       *testing.T
	cl      *commandLine
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	athlete primitive.ObjectID
	planned bool
	last    *app.App
}

// newCLI runs against a fresh in-memory store holding one athlete with
// templates. The clock is Monday 2025-06-02.
func newCLI(t *testing.T, planned bool) *cliFixture {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "cli-secret")

	f := &cliFixture{t: t, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, athlete: primitive.NewObjectID(), planned: planned}
	f.cl = newCommandLine(f.stdout, f.stderr)
	f.cl.now = func() time.Time { return time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC) }
	f.cl.build = func(ctx context.Context, cfg config.Config, log *logger.Logger) (*app.App, error) {
		a, err := app.Build(ctx, cfg, logger.Nop(), f.cl.now)
		if err != nil {
			return nil, err
		}
		f.seed(ctx, a)
		f.last = a
		return a, nil
	}
	return f
}

func (f *cliFixture) seed(ctx context.Context, a *app.App) {
	tenant := primitive.NewObjectID()
	a.Store.PutAthlete(domain.Athlete{ID: f.athlete, TenantID: tenant, Name: "Ada", Category: "elite", Active: true})
	for _, st := range []domain.SessionType{domain.SessionTraining, domain.SessionTest, domain.SessionRecovery} {
		a.Store.PutTemplate(domain.SessionTemplate{TenantID: tenant, SessionType: st, Tier: "elite", Duration: 60})
	}
	if f.planned {
		_, err := a.PlanService.GeneratePlan(ctx, service.GeneratePlanInput{PlayerID: f.athlete, Weeks: 8})
		require.NoError(f.t, err)
	}
}

func (f *cliFixture) run(args ...string) int {
	f.stdout.Reset()
	f.stderr.Reset()
	return f.cl.run(append(args, "--config", f.t.TempDir()))
}

func TestCommandUsage(t *testing.T) {
	f := newCLI(t, false)
	assert.Equal(t, exitUsage, f.cl.run(nil))
	assert.Contains(t, f.stderr.String(), "usage: planner")

	assert.Equal(t, exitUsage, f.cl.run([]string{"migrate"}))
	assert.Contains(t, f.stderr.String(), `unknown command "migrate"`)

	assert.Equal(t, exitOK, f.cl.run([]string{"help"}))
	assert.Equal(t, exitUsage, f.run("refresh", "--no-such-flag"))
}

func TestRefreshCommand(t *testing.T) {
	f := newCLI(t, true)

	code := f.run("refresh", "--weeks=1", "--exclude=2025-06-04")
	require.Equal(t, exitOK, code, f.stderr.String())

	out := f.stdout.String()
	assert.Contains(t, out, "window 2025-06-02..2025-06-09")
	assert.Contains(t, out, "player "+f.athlete.Hex()+" ok created=4 deleted=0 weekend=2")
	assert.Contains(t, out, "skip Excluded")
	assert.Contains(t, out, "dates=2025-06-04")
	assert.Contains(t, out, "summary: athletes=1 created=4")
	assert.Len(t, f.last.Store.Assignments(), 4)
}

func TestRefreshCommandDryRun(t *testing.T) {
	f := newCLI(t, true)

	code := f.run("refresh", "--weeks=2", "--dry-run", "--player="+f.athlete.Hex())
	require.Equal(t, exitOK, code, f.stderr.String())
	assert.Contains(t, f.stdout.String(), "(dry run)")
	assert.Contains(t, f.stdout.String(), "created=10")
	assert.Empty(t, f.last.Store.Assignments())
}

func TestRefreshCommandReportsSkippedAthlete(t *testing.T) {
	f := newCLI(t, false)

	code := f.run("refresh", "--weeks=1")
	require.Equal(t, exitOK, code, f.stderr.String())
	assert.Contains(t, f.stdout.String(), "player "+f.athlete.Hex()+" skipped")
	assert.Contains(t, f.stdout.String(), "skip NoPlan")
}

func TestRefreshCommandRejectsInput(t *testing.T) {
	f := newCLI(t, true)

	assert.Equal(t, exitUsage, f.run("refresh", "--weeks=60"))
	assert.Contains(t, f.stderr.String(), "invalid configuration")

	assert.Equal(t, exitUsage, f.run("refresh", "--player=nope"))
	assert.Equal(t, exitUsage, f.run("refresh", "--tenant=nope"))
	assert.Equal(t, exitUsage, f.run("refresh", "--exclude=06/04/2025"))
}

func TestRefreshCommandCannotStart(t *testing.T) {
	f := newCLI(t, true)
	f.cl.build = func(context.Context, config.Config, *logger.Logger) (*app.App, error) {
		return nil, errors.New("storage unavailable: connection refused")
	}
	assert.Equal(t, exitFailure, f.run("refresh"))
	assert.Contains(t, f.stderr.String(), "cannot start")
}

func TestGeneratePlanCommand(t *testing.T) {
	f := newCLI(t, false)

	code := f.run("generate-plan", "--player="+f.athlete.Hex(), "--weeks=20", "--start=2025-06-02")
	require.Equal(t, exitOK, code, f.stderr.String())
	out := f.stdout.String()
	assert.Contains(t, out, "2025-06-02..2025-10-20 (20 weeks)")
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "taper")

	assert.Equal(t, exitUsage, f.run("generate-plan"))
	assert.Equal(t, exitUsage, f.run("generate-plan", "--player="+primitive.NewObjectID().Hex()))
	assert.Contains(t, f.stderr.String(), "player not found")
	assert.Equal(t, exitUsage, f.run("generate-plan", "--player="+f.athlete.Hex(), "--weeks=53"))
	assert.Equal(t, exitUsage, f.run("generate-plan", "--player="+f.athlete.Hex(), "--start=soon"))
}

func TestGeneratePlanCommandWithTournament(t *testing.T) {
	f := newCLI(t, false)

	code := f.run("generate-plan", "--player="+f.athlete.Hex(), "--weeks=12", "--start=2025-06-02", "--tournament=2025-07-05:A")
	require.Equal(t, exitOK, code, f.stderr.String())
	assert.Contains(t, f.stdout.String(), "tournament 2025-07-05 (A) week 27, peak from week 24 (3 weeks), taper from 2025-06-28")

	schedule, err := f.last.PlanService.CurrentSchedule(context.Background(), f.athlete)
	require.NoError(t, err)
	require.Len(t, schedule.Weeks, 12)
	byWeek := map[int]domain.Periodization{}
	for _, r := range schedule.Weeks {
		byWeek[r.WeekNumber] = r
	}
	for _, w := range []int{24, 25, 26} {
		assert.Equal(t, domain.IntensityPeak, byWeek[w].VolumeIntensity, "week %d", w)
	}
	assert.Equal(t, domain.IntensityTaper, byWeek[27].VolumeIntensity)
	assert.Equal(t, "T", byWeek[27].Period)

	for _, bad := range []string{"2025-07-05", "2025-07-05:Z", "july:A", "2026-03-01:B"} {
		assert.Equal(t, exitUsage, f.run("generate-plan", "--player="+f.athlete.Hex(), "--weeks=12", "--start=2025-06-02", "--tournament="+bad), bad)
	}
}

func TestTokenCommand(t *testing.T) {
	f := newCLI(t, false)
	tenant := primitive.NewObjectID().Hex()

	code := f.run("token", "--user=ops", "--role=admin", "--tenant="+tenant)
	require.Equal(t, exitOK, code, f.stderr.String())
	assert.Len(t, strings.Split(strings.TrimSpace(f.stdout.String()), "."), 3)

	assert.Equal(t, exitUsage, f.run("token", "--user=ops", "--role=trainer", "--tenant="+tenant))
	assert.Equal(t, exitUsage, f.run("token", "--user=ops"))
}
