package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/catalog"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	service "github.com/mvanderlyn27/odyssey-backend-sub003/internal/app"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/simulate"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	def := simulate.DefaultConfig()
	var (
		catalogPath = flag.String("catalog", "catalog.yaml", "Path to the reference catalog")
		users       = flag.Int("users", def.Users, "Number of synthetic users")
		workouts    = flag.Int("workouts", def.Workouts, "Workouts per user")
		workers     = flag.Int("workers", runtime.NumCPU(), "Users simulated concurrently")
		seed        = flag.Int64("seed", def.Seed, "Random seed")
		premium     = flag.Float64("premium", def.PremiumRatio, "Share of premium users")
		topN        = flag.Int("top", def.TopN, "Leaderboard entries to report")
		timeout     = flag.Duration("timeout", def.Timeout, "Deadline of one calculation")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	ref, err := catalog.LoadFile(ctx, *catalogPath)
	if err != nil {
		logger.Get().Error(ctx, "failed to load catalog", logger.Error(err))
		os.Exit(1)
	}

	store := repository.NewMemoryStore()
	svc := service.New(
		service.WithReference(ref),
		service.WithStore(store),
		service.WithWorkerCount(runtime.NumCPU()),
		service.WithCalculationTimeout(*timeout),
		service.WithLogger(logger.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		logger.Get().Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	cfg := simulate.Config{
		Users:        *users,
		Workouts:     *workouts,
		Workers:      *workers,
		Seed:         *seed,
		PremiumRatio: *premium,
		TopN:         *topN,
		Timeout:      *timeout,
	}
	stats, err := simulate.NewRunner(svc, store, ref, logger.Named("simulate")).Run(ctx, cfg)
	if stopErr := svc.Stop(context.Background()); stopErr != nil {
		logger.Get().Warn(ctx, "service stop failed", logger.Error(stopErr))
	}
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}

	simulate.WriteReport(os.Stdout, stats)
	if len(stats.Inconsistencies) > 0 {
		os.Exit(2)
	}
}
