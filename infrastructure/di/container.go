// Package di wires the application together. Construction is explicit and
// ordered; anything that fails here fails startup.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sidebet-backend/application/lifecycle"
	"sidebet-backend/application/ports"
	"sidebet-backend/infrastructure/config"
	"sidebet-backend/infrastructure/feed"
	"sidebet-backend/infrastructure/messaging/eventbridge"
	dynamostore "sidebet-backend/infrastructure/persistence/dynamodb"
	"sidebet-backend/interfaces/http/rest"
	"sidebet-backend/interfaces/http/rest/handlers"
	"sidebet-backend/interfaces/http/rest/middleware"
	"sidebet-backend/pkg/auth"
	apperrors "sidebet-backend/pkg/errors"
)

// Container holds every constructed component.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Repositories
	Users    ports.UserRepository
	Leagues  ports.LeagueRepository
	Events   ports.EventRepository
	Bids     ports.BidRepository
	Bets     ports.BetRepository
	Outcomes ports.OutcomeRepository

	// External clients
	Feed      ports.Feed
	Scheduler ports.LockScheduler

	// Application
	Orchestrator *lifecycle.Orchestrator

	// HTTP
	Router *chi.Mux
}

// NewContainer builds the full dependency graph from the environment.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store := dynamostore.NewStore(
		awsdynamodb.NewFromConfig(awsCfg),
		dynamostore.TableConfig{
			TableName: cfg.TableName,
			GSI1Name:  cfg.GSI1Name,
			GSI2Name:  cfg.GSI2Name,
			GSI3Name:  cfg.GSI3Name,
		},
		logger,
	)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Users:    dynamostore.NewUserRepository(store, logger),
		Leagues:  dynamostore.NewLeagueRepository(store, logger),
		Events:   dynamostore.NewEventRepository(store, logger),
		Bids:     dynamostore.NewBidRepository(store, logger),
		Bets:     dynamostore.NewBetRepository(store, logger),
		Outcomes: dynamostore.NewOutcomeRepository(store, logger),
		Feed:     feed.NewESPNClient(cfg.FeedBaseURL, logger),
		Scheduler: eventbridge.NewLockScheduler(
			awseventbridge.NewFromConfig(awsCfg),
			cfg.LockFunctionArn,
			logger,
		),
	}

	c.Orchestrator = lifecycle.NewOrchestrator(
		c.Events, c.Bids, c.Bets, c.Outcomes,
		c.Feed, c.Scheduler, cfg.FeedKinds, cfg.ResolveLookbackDays, logger,
	)

	router, err := buildRouter(c)
	if err != nil {
		return nil, err
	}
	c.Router = router
	return c, nil
}

func buildRouter(c *Container) (*chi.Mux, error) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: c.Config.JWTSecret,
		Issuer:    c.Config.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("build jwt validator: %w", err)
	}

	errorHandler := apperrors.NewErrorHandler(c.Logger, !c.Config.IsProduction())

	h := rest.Handlers{
		Users:       handlers.NewUserHandler(c.Users, errorHandler, c.Logger),
		Leagues:     handlers.NewLeagueHandler(c.Leagues, c.Users, errorHandler, c.Logger),
		Marketplace: handlers.NewMarketplaceHandler(c.Events, c.Bids, c.Scheduler, errorHandler, c.Logger),
		Bids:        handlers.NewBidHandler(c.Bids, c.Events, errorHandler, c.Logger),
		Bets:        handlers.NewBetHandler(c.Bets, errorHandler, c.Logger),
		Outcomes:    handlers.NewOutcomeHandler(c.Outcomes, errorHandler, c.Logger),
	}

	return rest.NewRouter(h, rest.Options{
		AllowedOrigin: c.Config.AllowedOrigin,
		Authenticator: middleware.NewAuthenticator(validator, c.Logger),
		RateLimiter:   auth.NewUserRateLimiter(c.Config.RateLimitPerMinute),
		IPRateLimiter: auth.NewIPRateLimiter(c.Config.IPRateLimitPerMinute),
		ErrorHandler:  errorHandler,
		Logger:        c.Logger,
	}), nil
}

// Shutdown flushes buffered log entries.
func (c *Container) Shutdown() {
	_ = c.Logger.Sync()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
