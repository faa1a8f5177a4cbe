package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alpex-ai/housing-intelligence/internal/app/cache"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/dashboard"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/ingest"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/seed"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/zillow"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/memory"
	"github.com/alpex-ai/housing-intelligence/internal/app/system"
	"github.com/alpex-ai/housing-intelligence/internal/config"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Metrics   storage.MetricStore
	Regional  storage.RegionalStore
	Expenses  storage.ExpenseStore
	Crash     storage.CrashStore
	Index     storage.EconomicIndexStore
	Metro     storage.MetroStore
	Homes     storage.HomeStore
	Scenarios storage.ScenarioStore
}

// Options carries the optional collaborators of the application.
type Options struct {
	// Source feeds the sync jobs. Without it every sync fails with
	// fred.ErrMissingAPIKey.
	Source fred.Source
	// Cache fronts dashboard reads; nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// Jobs enables the cron scheduler when non-nil.
	Jobs       *config.JobsConfig
	Clock      clockwork.Clock
	HTTPClient *http.Client
	Rand       *rand.Rand
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ingest    *ingest.Service
	Seed      *seed.Service
	Importer  *zillow.Importer
	Dashboard *dashboard.Service
	Advisor   *advisor.Service
	Scheduler *ingest.Scheduler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	mem := memory.New()
	if stores.Metrics == nil {
		stores.Metrics = mem
	}
	if stores.Regional == nil {
		stores.Regional = mem
	}
	if stores.Expenses == nil {
		stores.Expenses = mem
	}
	if stores.Crash == nil {
		stores.Crash = mem
	}
	if stores.Index == nil {
		stores.Index = mem
	}
	if stores.Metro == nil {
		stores.Metro = mem
	}
	if stores.Homes == nil {
		stores.Homes = mem
	}
	if stores.Scenarios == nil {
		stores.Scenarios = mem
	}

	manager := system.NewManager()

	ingestService := ingest.New(ingest.Stores{
		Metrics:  stores.Metrics,
		Regional: stores.Regional,
		Expenses: stores.Expenses,
		Crash:    stores.Crash,
		Index:    stores.Index,
	}, opts.Source, opts.Clock, log)
	seedService := seed.New(seed.Stores{
		Regional: stores.Regional,
		Expenses: stores.Expenses,
		Crash:    stores.Crash,
		Index:    stores.Index,
	}, opts.Clock, opts.Rand, log)
	dashService := dashboard.New(dashboard.Stores{
		Metrics:  stores.Metrics,
		Regional: stores.Regional,
		Expenses: stores.Expenses,
		Crash:    stores.Crash,
		Index:    stores.Index,
	}, opts.Cache, opts.CacheTTL, log)
	advisorService := advisor.New(stores.Homes, stores.Scenarios, stores.Metro, opts.Clock, log)
	importer := zillow.NewImporter(stores.Metro, opts.HTTPClient, log)

	ingestService.OnComplete(func(ctx context.Context, report ingest.Report) {
		if err := dashService.Invalidate(ctx); err != nil {
			log.WithError(err).WithField("job", report.Job).Warn("dashboard cache not invalidated after sync")
		}
	})

	seedService.OnComplete(func(ctx context.Context, _ seed.Report) {
		if err := dashService.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("dashboard cache not invalidated after seeding")
		}
	})

	if opts.Source == nil {
		log.Warn("FRED_API_KEY not set; sync jobs will fail until it is configured")
	}

	var scheduler *ingest.Scheduler
	if opts.Jobs != nil {
		scheduler = ingest.NewScheduler(ingestService, opts.Jobs, log)
		if err := manager.Register(scheduler); err != nil {
			return nil, fmt.Errorf("register %s: %w", scheduler.Name(), err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Ingest:    ingestService,
		Seed:      seedService,
		Importer:  importer,
		Dashboard: dashService,
		Advisor:   advisorService,
		Scheduler: scheduler,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists the registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
