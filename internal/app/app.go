package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/jmorneau/rinkstats/external/leaguestat"
	"github.com/jmorneau/rinkstats/external/pbparchive"
	"github.com/jmorneau/rinkstats/internal/config"
	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	"github.com/jmorneau/rinkstats/internal/infrastructure/repository/postgres"
	idgen "github.com/jmorneau/rinkstats/internal/platform/id"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
	"github.com/jmorneau/rinkstats/internal/usecase"
)

// Container wires the pipeline: store repositories, both source clients and
// the usecase services. One container serves one process.
type Container struct {
	Config config.Config
	Logger *logging.Logger
	DB     *sqlx.DB

	FeedClient    *leaguestat.Client
	ArchiveClient *pbparchive.Client

	Ingestion   *usecase.IngestionService
	FeedSync    *usecase.FeedSyncService
	ArchiveSync *usecase.ArchiveSyncService
	Derivation  *usecase.DerivationService
	Refresh     *usecase.RefreshService
	Status      *usecase.StatusService
}

func NewContainer(cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	seasonRepo := postgres.NewSeasonRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	rosterRepo := postgres.NewRosterRepository(db)
	gameRepo := postgres.NewGameRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	skaterStatsRepo := postgres.NewSkaterStatsRepository(db)
	goalieStatsRepo := postgres.NewGoalieStatsRepository(db)
	teamStatsRepo := postgres.NewTeamStatsRepository(db)
	boxscoreRepo := postgres.NewBoxscoreRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	rawDataRepo := postgres.NewRawDataRepository(db)
	runRepo := postgres.NewIngestRunRepository(db)

	ingestion := usecase.NewIngestionService(
		seasonRepo,
		teamRepo,
		playerRepo,
		rosterRepo,
		gameRepo,
		eventRepo,
		skaterStatsRepo,
		goalieStatsRepo,
		teamStatsRepo,
		rawDataRepo,
	)

	feedClient := leaguestat.NewClient(leaguestat.ClientConfig{
		BaseURL:        cfg.FeedBaseURL,
		Key:            cfg.FeedAPIKey,
		ClientCode:     cfg.FeedClientCode,
		LeagueID:       cfg.FeedLeagueID,
		Timeout:        cfg.FeedTimeout,
		MaxRetries:     cfg.FeedMaxRetries,
		RateLimit:      cfg.FeedRateRPS,
		Logger:         logger,
		CircuitBreaker: cfg.FeedCircuit,
	})
	archiveClient := pbparchive.NewClient(pbparchive.ClientConfig{
		BaseURL:        cfg.ArchiveBaseURL,
		Timeout:        cfg.ArchiveTimeout,
		MaxRetries:     cfg.ArchiveMaxRetries,
		MaxConcurrent:  cfg.ArchiveMaxConcurrent,
		Logger:         logger,
		CircuitBreaker: cfg.ArchiveCircuit,
	})

	params := analytics.DefaultParams()
	if cfg.XGModelVersion != "" {
		params.Version = cfg.XGModelVersion
	}

	feedSync := usecase.NewFeedSyncService(feedClient, teamRepo, playerRepo, ingestion, logger)
	archiveSync := usecase.NewArchiveSyncService(archiveClient, playerRepo, gameRepo, seasonRepo, ingestion, logger)
	derivation := usecase.NewDerivationService(
		params,
		gameRepo,
		eventRepo,
		playerRepo,
		boxscoreRepo,
		skaterStatsRepo,
		goalieStatsRepo,
		teamStatsRepo,
		analyticsRepo,
		logger,
	)
	refresh := usecase.NewRefreshService(
		feedSync,
		archiveSync,
		derivation,
		seasonRepo,
		runRepo,
		idgen.NewRandomGenerator(),
		logger,
	)
	status := usecase.NewStatusService(
		seasonRepo,
		teamRepo,
		playerRepo,
		gameRepo,
		eventRepo,
		rawDataRepo,
		runRepo,
		logger,
	)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		FeedClient:    feedClient,
		ArchiveClient: archiveClient,
		Ingestion:     ingestion,
		FeedSync:      feedSync,
		ArchiveSync:   archiveSync,
		Derivation:    derivation,
		Refresh:       refresh,
		Status:        status,
	}, nil
}

func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// openDB connects through the otel-instrumented sqlx wrapper so every query
// lands in the active trace, with statements normalized and truncated before
// they become span attributes.
func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return db, nil
}
