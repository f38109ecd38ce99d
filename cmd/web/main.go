package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/billeffect/internal/ai"
	"github.com/myrjola/billeffect/internal/envstruct"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/ingest"
	"github.com/myrjola/billeffect/internal/logging"
	"github.com/myrjola/billeffect/internal/pdfextract"
	"github.com/myrjola/billeffect/internal/playback"
	"github.com/myrjola/billeffect/internal/pprofserver"
	"github.com/myrjola/billeffect/internal/repositories"
	"github.com/myrjola/billeffect/internal/simulation"
	"github.com/myrjola/billeffect/internal/sqlite"
	"github.com/myrjola/billeffect/internal/store"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	workspaces     *store.Registry
	ingester       *ingest.Ingester
	simulations    *simulation.Service
	runs           *repositories.RunRepository
	templates      *templateCache
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"BILLEFFECT_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the path to the SQLite database. The default keeps everything in memory.
	SqliteURL string `env:"BILLEFFECT_SQLITE_URL" envDefault:":memory:"`
	// PprofAddr is the loopback address of the pprof listener. Empty disables it.
	PprofAddr         string        `env:"BILLEFFECT_PPROF_ADDR" envDefault:""`
	AnalysisMode      string        `env:"BILLEFFECT_ANALYSIS_MODE" envDefault:"auto"`
	OfflineLatency    bool          `env:"BILLEFFECT_OFFLINE_LATENCY" envDefault:"true"`
	TickInterval      time.Duration `env:"BILLEFFECT_TICK_INTERVAL" envDefault:"1s"`
	SimulationTimeout time.Duration `env:"BILLEFFECT_SIMULATION_TIMEOUT" envDefault:"2m"`
	SessionLifetime   time.Duration `env:"BILLEFFECT_SESSION_LIFETIME" envDefault:"12h"`
	WorkspaceIdle     time.Duration `env:"BILLEFFECT_WORKSPACE_IDLE" envDefault:"1h"`
	GrokAPIKey        string        `env:"GROK_API_KEY" envDefault:""`
	GrokBaseURL       string        `env:"GROK_BASE_URL" envDefault:""`
	GrokModel         string        `env:"GROK_MODEL" envDefault:""`
	ReductoAPIKey     string        `env:"REDUCTO_API_KEY" envDefault:""`
	ReductoBaseURL    string        `env:"REDUCTO_BASE_URL" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if err = playback.ValidateBaseInterval(cfg.TickInterval); err != nil {
		return errors.Wrap(err, "validate config")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	var analyst ai.Analyst
	if analyst, err = ai.New(ai.Config{
		Mode:              cfg.AnalysisMode,
		APIKey:            cfg.GrokAPIKey,
		BaseURL:           cfg.GrokBaseURL,
		Model:             cfg.GrokModel,
		Temperature:       ai.DefaultTemperature,
		RequestsPerSecond: 1,
		OfflineLatency:    cfg.OfflineLatency,
	}, logger); err != nil {
		return errors.Wrap(err, "create analyst")
	}

	var extractor ingest.PDFExtractor
	if cfg.ReductoAPIKey == "" {
		logger.LogAttrs(ctx, slog.LevelInfo, "no pdf extraction api key configured, pdf uploads are disabled")
	} else {
		var client *pdfextract.Client
		if client, err = pdfextract.New(pdfextract.Config{
			APIKey:            cfg.ReductoAPIKey,
			BaseURL:           cfg.ReductoBaseURL,
			RequestsPerSecond: 1,
			HTTPClient:        nil,
		}, logger); err != nil {
			return errors.Wrap(err, "create pdf extractor")
		}
		extractor = client
	}

	runs := repositories.NewRunRepository(db, logger)
	simulations := simulation.NewService(analyst, runs, logger, cfg.SimulationTimeout)
	defer simulations.Close()

	workspaces := store.NewRegistry(logger, playback.WithBaseInterval(cfg.TickInterval))
	defer workspaces.Close()
	go workspaces.StartJanitor(ctx, cfg.WorkspaceIdle, time.Minute)

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, time.Hour)
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = true

	var templates *templateCache
	if templates, err = newTemplateCache(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		workspaces:     workspaces,
		ingester:       ingest.NewIngester(logger, extractor),
		simulations:    simulations,
		runs:           runs,
		templates:      templates,
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "configured application", slog.String("analysis_mode", analyst.Mode()),
		slog.Bool("pdf_extraction", extractor != nil))

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()

	// The .env file is optional, the environment wins over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.NewLogger(os.Stdout, slog.LevelInfo, true).
			LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if s, ok := os.LookupEnv("BILLEFFECT_LOG_LEVEL"); ok {
		var err error
		if level, err = logging.ParseLevel(s); err != nil {
			logging.NewLogger(os.Stdout, slog.LevelInfo, true).
				LogAttrs(ctx, slog.LevelError, "invalid log level", errors.SlogError(err))
			os.Exit(1)
		}
	}
	logger := logging.NewLogger(os.Stdout, level, true)

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
