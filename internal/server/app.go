// Package server wires the flight log server together: it builds every
// component from the configuration, starts the listener and the background
// reapers, and shuts everything down on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/filex"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/airports"
	"github.com/dmitrijs2005/flightkeeper/internal/server/config"
	"github.com/dmitrijs2005/flightkeeper/internal/server/consensus"
	"github.com/dmitrijs2005/flightkeeper/internal/server/feedback"
	"github.com/dmitrijs2005/flightkeeper/internal/server/flights"
	"github.com/dmitrijs2005/flightkeeper/internal/server/mail"
	"github.com/dmitrijs2005/flightkeeper/internal/server/protocol"
	"github.com/dmitrijs2005/flightkeeper/internal/server/relay"
	"github.com/dmitrijs2005/flightkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/flightkeeper/internal/server/services"
	"github.com/dmitrijs2005/flightkeeper/internal/server/transport"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/spf13/afero"
)

// Files below Config.TypesDir.
const (
	AircraftTypesFile = "aircraft_types.yaml"
	ForcedTypesFile   = "forced_types.yaml"
	ConsensusFile     = "consensus"
)

const (
	relayReapInterval  = time.Minute
	emailPurgeInterval = time.Hour
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	consensus *consensus.Engine
	relay     *relay.Store
	email     *services.EmailService
	server    *transport.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, c, afero.NewOsFs(), logger)
}

func newApp(ctx context.Context, c *config.Config, fs afero.Fs, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	storage, err := flights.NewStorage(fs, c.UserDir, flights.SchemaUpgrader{}, logger.With("module", "flights"))
	if err != nil {
		return nil, fmt.Errorf("user storage init error: %w", err)
	}

	catalog, forced, err := loadAircraftData(ctx, fs, c.TypesDir, logger)
	if err != nil {
		return nil, err
	}
	if err := filex.EnsureDir(fs, c.TypesDir); err != nil {
		return nil, fmt.Errorf("types dir init error: %w", err)
	}
	engine, err := consensus.NewEngine(fs, filepath.Join(c.TypesDir, ConsensusFile), c.ConsensusLimit, logger.With("module", "consensus"))
	if err != nil {
		return nil, fmt.Errorf("consensus init error: %w", err)
	}
	app.consensus = engine

	sink, err := newFeedbackSink(ctx, c, fs)
	if err != nil {
		return nil, fmt.Errorf("feedback init error: %w", err)
	}

	app.relay = relay.NewStore(relay.DefaultTTL, logger.With("module", "relay"))

	svc := &protocol.Services{
		Consensus:   engine,
		Catalog:     catalog,
		ForcedTypes: forced,
		Airports:    airports.NewStore(fs, c.AirportsFile),
		Feedback:    sink,
		Relay:       app.relay,
	}

	var links services.LoginLinkSender
	if c.MailEnabled() {
		if err := app.initEmail(ctx); err != nil {
			return nil, err
		}
		svc.Email = app.email
		links = app.email
	} else {
		logger.Warn(ctx, "no SMTP host configured, email requests will fail")
	}
	svc.Users = services.NewUserService(storage, links, logger.With("module", "users"))

	tlsConfig, err := app.tlsConfig()
	if err != nil {
		return nil, err
	}
	codec := wire.NewCodec(int64(c.MaxMessageSize.Bytes()))
	handle := func(ctx context.Context, conn net.Conn, l logging.Logger) error {
		return protocol.NewHandler(conn, codec, svc, l).Serve(ctx)
	}
	app.server = transport.NewServer(c.EndpointAddr, tlsConfig, handle, logger)

	return app, nil
}

var sqlOpen = sql.Open

func (app *App) initEmail(ctx context.Context) error {
	c := app.config

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("db migration error: %w", err)
	}
	app.db = db

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.EmailFrom,
		FromName: "Joozdlog",
	})
	app.email = services.NewEmailService(db, rm, mailer, c, app.logger.With("module", "email"))
	return nil
}

func (app *App) tlsConfig() (*tls.Config, error) {
	if !app.config.TLSEnabled() {
		return nil, nil
	}
	return transport.LoadTLSConfig(app.config.TLSCertFile, app.config.TLSKeyFile)
}

// loadAircraftData reads the type catalog and the forced types from dir.
// Missing files are served with version -1.
func loadAircraftData(ctx context.Context, fs afero.Fs, dir string, logger logging.Logger) (*consensus.Catalog, *consensus.ForcedTypes, error) {
	catalog, err := consensus.LoadCatalog(fs, filepath.Join(dir, AircraftTypesFile))
	if err != nil {
		return nil, nil, fmt.Errorf("aircraft types: %w", err)
	}
	forced, unmatched, err := consensus.LoadForcedTypes(fs, filepath.Join(dir, ForcedTypesFile), catalog)
	if err != nil {
		return nil, nil, fmt.Errorf("forced types: %w", err)
	}
	if len(unmatched) > 0 {
		logger.Warn(ctx, "forced types not in catalog", "registrations", unmatched)
	}
	logger.Info(ctx, "aircraft data loaded",
		"types_version", catalog.Version, "types", len(catalog.Types),
		"forced_version", forced.Version, "forced", len(forced.Types))
	return catalog, forced, nil
}

func newFeedbackSink(ctx context.Context, c *config.Config, fs afero.Fs) (protocol.FeedbackSink, error) {
	if c.S3Bucket == "" {
		return feedback.NewFileSink(fs, c.FeedbackFile), nil
	}
	return feedback.NewS3Sink(ctx, feedback.S3Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives, ctx is done or the listener fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.relay.Run(ctx, relayReapInterval)
	}()

	if app.email != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.email.Run(ctx, emailPurgeInterval)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// Close flushes the consensus counters and releases the database
// connection, if any.
func (app *App) Close() error {
	var errs []error
	if app.consensus != nil {
		if err := app.consensus.WriteToFile(); err != nil {
			errs = append(errs, fmt.Errorf("consensus flush: %w", err))
		}
	}
	if app.db != nil {
		db := app.db
		app.db = nil
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}
