package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
	"github.com/desertthunder/stride/internal/tasks"
)

const defaultLogFile = "./tmp/stride-tui.log"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services and the database are built from the config on first use unless injected.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	logFile    string // log destination while the TUI owns the terminal

	streaming  services.StreamingService
	similarity services.SimilarityService
	tempo      services.TempoService
	spotify    *services.SpotifyService // set when streaming was built from config

	db     *sql.DB
	ownsDB bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	LogFile    string
	Streaming  services.StreamingService
	Similarity services.SimilarityService
	Tempo      services.TempoService
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogFile == "" {
		opts.LogFile = defaultLogFile
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		logFile:    opts.LogFile,
		streaming:  opts.Streaming,
		similarity: opts.Similarity,
		tempo:      opts.Tempo,
		db:         opts.DB,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "stride",
		Usage:   "Build running playlists that match your cadence",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, generateCommand, analyzeCommand, cacheCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.configPath == "" || cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}
	return ctx, r.loadConfig()
}

// loadConfig reads the config file when present, falling back to defaults plus environment.
func (r *Runner) loadConfig() error {
	if r.config != nil {
		return nil
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		if err := shared.ApplyEnv(r.config); err != nil {
			return err
		}
	}

	return r.config.Validate()
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	r.persistToken()

	if r.db != nil && r.ownsDB {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
	return nil
}

// persistToken saves a token refreshed during the command so the next run starts with it.
func (r *Runner) persistToken() {
	if r.spotify == nil || r.config == nil {
		return
	}

	token, err := r.spotify.Token()
	if err != nil || token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}

	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed spotify token saved", "path", r.configPath)
}

// saveTokens stores token in the config and writes the config file when a path is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// database opens the cache database and applies migrations on first use.
func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrationsContext(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownsDB = db, true
	return db, nil
}

// store returns the cache store: the SQLite file, or a process-local LRU when ephemeral.
func (r *Runner) store(ctx context.Context, ephemeral bool) (cache.Store, error) {
	if ephemeral {
		store, err := cache.NewMemoryStore(cache.DefaultMemorySize)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	return cache.NewSQLiteStore(db), nil
}

// streamingService returns the authenticated Spotify client.
func (r *Runner) streamingService(ctx context.Context) (services.StreamingService, error) {
	if r.streaming != nil {
		return r.streaming, nil
	}

	creds := r.config.Credentials.Spotify
	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'stride spotify auth' first", shared.ErrNotAuthenticated)
	}

	spotify, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, err
	}
	spotify.SetToken(ctx, token)

	r.spotify, r.streaming = spotify, spotify
	return spotify, nil
}

// reccoBeats returns the similarity and tempo services.
func (r *Runner) reccoBeats() (services.SimilarityService, services.TempoService) {
	if r.similarity != nil && r.tempo != nil {
		return r.similarity, r.tempo
	}

	client := services.NewReccoBeatsClient(services.ReccoBeatsOptions{
		BaseURL:           r.config.ReccoBeats.BaseURL,
		RequestsPerSecond: r.config.ReccoBeats.RequestsPerSecond,
		Timeout:           r.config.ReccoBeats.Timeout.Duration,
	})
	if r.similarity == nil {
		r.similarity = client
	}
	if r.tempo == nil {
		r.tempo = client
	}
	return r.similarity, r.tempo
}

// resolver builds a tempo resolver over store.
func (r *Runner) resolver(store cache.Store) *tasks.TempoResolver {
	_, tempo := r.reccoBeats()
	records := repositories.NewTempoRepository(store, r.config.Pipeline.Retention.Duration, repositories.WithLogger(r.logger))
	return tasks.NewTempoResolver(tempo, records, r.config.Pipeline.BatchSize, r.logger)
}

// pipeline wires the four stages over store.
func (r *Runner) pipeline(store cache.Store, streaming services.StreamingService) *tasks.Pipeline {
	cfg := r.config.Pipeline
	similarity, _ := r.reccoBeats()

	collector := tasks.NewLibraryCollector(
		streaming,
		repositories.NewLibraryRepository(store, cfg.LibraryTTL.Duration, repositories.WithLogger(r.logger)),
		repositories.NewArtistTrackRepository(store, cfg.Retention.Duration, repositories.WithLogger(r.logger)),
		tasks.CollectorOptions{TopLimit: cfg.TopLimit, SavedLimit: cfg.SavedLimit, IncludeArtists: cfg.IncludeArtists},
		r.logger,
	)
	expander := tasks.NewCandidateExpander(
		similarity,
		repositories.NewRecommendationRepository(store, cfg.Retention.Duration, repositories.WithLogger(r.logger)),
		tasks.ExpanderOptions{PoolCeiling: cfg.PoolCeiling, SimilarLimit: cfg.SimilarLimit},
		r.logger,
	)

	return tasks.NewPipeline(collector, expander, r.resolver(store), tasks.PipelineOptions{ExpandThreshold: cfg.ExpandThreshold}, r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
