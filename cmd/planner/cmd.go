package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golfacademy/training-planner/internal/app"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/service"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // the run could not start or storage failed
	exitUsage   = 2 // bad flags or configuration
)

const usage = `usage: planner <command> [flags]

commands:
  refresh        rewrite the rolling assignment window for active athletes
  generate-plan  generate a new annual plan for one athlete
  schedule       run refresh on an interval until interrupted
  token          mint an access token for the HTTP API
`

type commandLine struct {
	stdout io.Writer
	stderr io.Writer

	// build assembles the services; tests replace it to seed the store.
	build func(ctx context.Context, cfg config.Config, log *logger.Logger) (*app.App, error)
	now   service.Clock
}

func newCommandLine(stdout, stderr io.Writer) *commandLine {
	cl := &commandLine{stdout: stdout, stderr: stderr, now: func() time.Time { return time.Now().UTC() }}
	cl.build = func(ctx context.Context, cfg config.Config, log *logger.Logger) (*app.App, error) {
		return app.Build(ctx, cfg, log, cl.now)
	}
	return cl
}

func (cl *commandLine) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(cl.stderr, usage)
		return exitUsage
	}
	switch args[0] {
	case "refresh":
		return cl.refresh(args[1:])
	case "generate-plan":
		return cl.generatePlan(args[1:])
	case "schedule":
		return cl.schedule(args[1:])
	case "token":
		return cl.token(args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(cl.stdout, usage)
		return exitOK
	}
	fmt.Fprintf(cl.stderr, "unknown command %q\n\n%s", args[0], usage)
	return exitUsage
}

// flagSet creates a FlagSet with the flags every command shares.
func (cl *commandLine) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(cl.stderr)
	fs.String("config", ".", "directory holding config.yaml and .env")
	fs.String("log-mode", "", "dev or prod")
	return fs
}

// loadConfig parses args, binds the flags into viper and loads Config.
func (cl *commandLine) loadConfig(fs *pflag.FlagSet, args []string, bindings map[string]string) (config.Config, bool) {
	if err := fs.Parse(args); err != nil {
		return config.Config{}, false
	}
	v := viper.New()
	bindings["log.mode"] = "log-mode"
	for key, flag := range bindings {
		// Only explicit flags override file and environment values.
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				fmt.Fprintf(cl.stderr, "bind %s: %v\n", flag, err)
				return config.Config{}, false
			}
		}
	}
	dir, _ := fs.GetString("config")
	cfg, err := config.Load(v, dir)
	if err != nil {
		fmt.Fprintf(cl.stderr, "invalid configuration: %v\n", err)
		return config.Config{}, false
	}
	return cfg, true
}

// open builds the logger and the services.
func (cl *commandLine) open(ctx context.Context, cfg config.Config) (*app.App, *logger.Logger, int) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(cl.stderr, "logger: %v\n", err)
		return nil, nil, exitUsage
	}
	a, err := cl.build(ctx, cfg, log)
	if err != nil {
		log.Error("cannot start", "error", err)
		fmt.Fprintf(cl.stderr, "cannot start: %v\n", err)
		return nil, nil, exitFailure
	}
	return a, log, exitOK
}

func (cl *commandLine) refresh(args []string) int {
	fs := cl.flagSet("refresh")
	fs.Int("weeks", 4, "window length in weeks (1-52)")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	players := fs.StringArray("player", nil, "limit to athlete id (repeatable)")
	tenant := fs.String("tenant", "", "limit to tenant id")
	exclude := fs.StringArray("exclude", nil, "skip date YYYY-MM-DD (repeatable)")

	cfg, ok := cl.loadConfig(fs, args, map[string]string{"scheduler.weeks": "weeks"})
	if !ok {
		return exitUsage
	}
	req, err := buildJobRequest(cfg.Scheduler.Weeks, *dryRun, *tenant, *players, *exclude)
	if err != nil {
		fmt.Fprintln(cl.stderr, err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, log, code := cl.open(ctx, cfg)
	if code != exitOK {
		return code
	}
	defer log.Sync()
	defer a.Close()

	report, err := a.RefreshJob.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(cl.stderr, "refresh failed: %v\n", err)
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return exitUsage
		}
		return exitFailure
	}
	printReport(cl.stdout, report)
	return exitOK
}

func (cl *commandLine) schedule(args []string) int {
	fs := cl.flagSet("schedule")
	fs.Int("weeks", 4, "window length in weeks (1-52)")
	fs.Duration("interval", 24*time.Hour, "time between refreshes")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")

	cfg, ok := cl.loadConfig(fs, args, map[string]string{
		"scheduler.weeks":    "weeks",
		"scheduler.interval": "interval",
	})
	if !ok {
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, log, code := cl.open(ctx, cfg)
	if code != exitOK {
		return code
	}
	defer log.Sync()
	defer a.Close()

	log.Info("scheduling refreshes", "interval", cfg.Scheduler.Interval, "weeks", cfg.Scheduler.Weeks)
	req := service.RefreshJobRequest{Weeks: cfg.Scheduler.Weeks, DryRun: *dryRun}
	if err := a.RefreshJob.RunEvery(ctx, cfg.Scheduler.Interval, req); err != nil {
		fmt.Fprintf(cl.stderr, "schedule failed: %v\n", err)
		return exitUsage
	}
	return exitOK
}

func (cl *commandLine) generatePlan(args []string) int {
	fs := cl.flagSet("generate-plan")
	player := fs.String("player", "", "athlete id (required)")
	weeks := fs.Int("weeks", service.MaxSeasonWeeks, "season length in weeks (1-52)")
	start := fs.String("start", "", "season start YYYY-MM-DD (default: this week's Monday)")
	tournaments := fs.StringArray("tournament", nil, "tournament DATE:IMPORTANCE, importance A, B or C (repeatable)")

	cfg, ok := cl.loadConfig(fs, args, map[string]string{})
	if !ok {
		return exitUsage
	}
	playerID, err := primitive.ObjectIDFromHex(*player)
	if err != nil {
		fmt.Fprintf(cl.stderr, "--player must be an athlete id: %q\n", *player)
		return exitUsage
	}
	in := service.GeneratePlanInput{PlayerID: playerID, Weeks: *weeks}
	if *start != "" {
		if in.SeasonStart, err = domain.ParseDate(*start); err != nil {
			fmt.Fprintf(cl.stderr, "--start must be YYYY-MM-DD: %q\n", *start)
			return exitUsage
		}
	}
	for _, raw := range *tournaments {
		t, err := parseTournament(raw)
		if err != nil {
			fmt.Fprintln(cl.stderr, err)
			return exitUsage
		}
		in.Tournaments = append(in.Tournaments, t)
	}

	ctx := context.Background()
	a, log, code := cl.open(ctx, cfg)
	if code != exitOK {
		return code
	}
	defer log.Sync()
	defer a.Close()

	out, err := a.PlanService.GeneratePlan(ctx, in)
	if err != nil {
		fmt.Fprintf(cl.stderr, "generate plan failed: %v\n", err)
		var (
			cfgErr *domain.ConfigurationError
			nfErr  *domain.NotFoundError
		)
		if errors.As(err, &cfgErr) || errors.As(err, &nfErr) {
			return exitUsage
		}
		return exitFailure
	}

	plan := out.Plan
	fmt.Fprintf(cl.stdout, "plan %s for %s: %s..%s (%d weeks)\n", plan.ID.Hex(), plan.PlayerID.Hex(),
		plan.SeasonStartDate.Format(domain.DateLayout), plan.SeasonEndDate.Format(domain.DateLayout), plan.SeasonLengthWeeks)
	for _, w := range plan.Phases {
		fmt.Fprintf(cl.stdout, "  %-10s %2d weeks  %s..%s  %.1f h/week\n", w.Phase, w.Weeks,
			w.StartDate.Format(domain.DateLayout), w.EndDate.Format(domain.DateLayout), w.WeeklyHours)
	}
	for _, p := range out.Dropped {
		fmt.Fprintf(cl.stdout, "  dropped %s\n", p)
	}
	for _, t := range plan.Tournaments {
		fmt.Fprintf(cl.stdout, "  tournament %s (%s) week %d, peak from week %d (%d weeks), taper from %s\n",
			t.Date.Format(domain.DateLayout), t.Importance, t.WeekNumber, t.ToppingStartWeek, t.ToppingWeeks,
			t.TaperingStartDate.Format(domain.DateLayout))
	}
	return exitOK
}

// parseTournament reads DATE:IMPORTANCE, e.g. 2025-07-05:A.
func parseTournament(raw string) (service.TournamentInput, error) {
	day, importance, found := strings.Cut(raw, ":")
	if !found {
		return service.TournamentInput{}, fmt.Errorf("--tournament must be DATE:IMPORTANCE: %q", raw)
	}
	d, err := domain.ParseDate(day)
	if err != nil {
		return service.TournamentInput{}, fmt.Errorf("--tournament date must be YYYY-MM-DD: %q", raw)
	}
	imp := domain.TournamentImportance(strings.ToUpper(importance))
	if !imp.Valid() {
		return service.TournamentInput{}, fmt.Errorf("--tournament importance must be A, B or C: %q", raw)
	}
	return service.TournamentInput{Date: d, Importance: imp}, nil
}

func (cl *commandLine) token(args []string) int {
	fs := cl.flagSet("token")
	user := fs.String("user", "", "user id placed in the uid claim (required)")
	role := fs.String("role", string(domain.RoleAdmin), "admin, coach or player")
	tenant := fs.String("tenant", "", "tenant id (required)")
	fs.Duration("ttl", time.Hour, "token lifetime")

	cfg, ok := cl.loadConfig(fs, args, map[string]string{"jwt.expiration": "ttl"})
	if !ok {
		return exitUsage
	}
	tenantID, err := primitive.ObjectIDFromHex(*tenant)
	if err != nil {
		fmt.Fprintf(cl.stderr, "--tenant must be an id: %q\n", *tenant)
		return exitUsage
	}
	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration, cl.now)
	if err != nil {
		fmt.Fprintf(cl.stderr, "token: %v\n", err)
		return exitUsage
	}
	signed, err := tokens.Issue(*user, domain.Role(*role), tenantID)
	if err != nil {
		fmt.Fprintf(cl.stderr, "token: %v\n", err)
		return exitUsage
	}
	fmt.Fprintln(cl.stdout, signed)
	return exitOK
}

func buildJobRequest(weeks int, dryRun bool, tenant string, players, exclude []string) (service.RefreshJobRequest, error) {
	req := service.RefreshJobRequest{Weeks: weeks, DryRun: dryRun}
	if tenant != "" {
		id, err := primitive.ObjectIDFromHex(tenant)
		if err != nil {
			return req, fmt.Errorf("--tenant must be an id: %q", tenant)
		}
		req.TenantID = id
	}
	for _, p := range players {
		id, err := primitive.ObjectIDFromHex(p)
		if err != nil {
			return req, fmt.Errorf("--player must be an athlete id: %q", p)
		}
		req.PlayerIDs = append(req.PlayerIDs, id)
	}
	for _, s := range exclude {
		d, err := domain.ParseDate(s)
		if err != nil {
			return req, fmt.Errorf("--exclude must be YYYY-MM-DD: %q", s)
		}
		req.ExcludeDates = append(req.ExcludeDates, d)
	}
	return req, nil
}

func printReport(w io.Writer, r *service.RefreshReport) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "run %s window %s..%s%s\n", r.RunID,
		r.WindowStart.Format(domain.DateLayout), r.WindowEnd.Format(domain.DateLayout), mode)

	for _, p := range r.Players {
		switch p.Status {
		case service.AthleteFailed:
			fmt.Fprintf(w, "player %s failed after %d attempts: %s\n", p.PlayerID.Hex(), p.Attempts, p.Error)
			continue
		case service.AthleteDeferred, service.AthleteClaimed:
			fmt.Fprintf(w, "player %s %s\n", p.PlayerID.Hex(), p.Status)
			continue
		}
		fmt.Fprintf(w, "player %s %s created=%d deleted=%d weekend=%d\n",
			p.PlayerID.Hex(), p.Status, p.Created, p.Deleted, p.WeekendDays)
		for _, s := range p.Skips {
			fmt.Fprintf(w, "  skip %s", s.Reason)
			if s.Week > 0 {
				fmt.Fprintf(w, " week=%d", s.Week)
			}
			if s.SessionType != "" {
				fmt.Fprintf(w, " type=%s", s.SessionType)
			}
			fmt.Fprintf(w, " dates=%s\n", strings.Join(s.Dates, ","))
		}
	}

	fmt.Fprintf(w, "summary: athletes=%d created=%d deleted=%d skipped=%d weekend=%d failed=%d deferred=%d claimed=%d\n",
		r.AthletesProcessed, r.Created, r.Deleted, r.Skipped, r.WeekendDays, r.Failed, r.Deferred, r.Claimed)
	if len(r.ByType) > 0 {
		types := make([]string, 0, len(r.ByType))
		for t := range r.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		parts := make([]string, 0, len(types))
		for _, t := range types {
			parts = append(parts, fmt.Sprintf("%s=%d", t, r.ByType[domain.SessionType(t)]))
		}
		fmt.Fprintf(w, "by type: %s\n", strings.Join(parts, " "))
	}
}
