package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	ReccoBeats  ReccoBeatsConfig  `toml:"reccobeats"`
	Database    DatabaseConfig    `toml:"database"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Playlist    PlaylistConfig    `toml:"playlist"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the most recent OAuth2 tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
	AccessToken  string `toml:"access_token" env:"SPOTIFY_ACCESS_TOKEN"`
	RefreshToken string `toml:"refresh_token" env:"SPOTIFY_REFRESH_TOKEN"`
	TokenExpiry  string `toml:"token_expiry"` // RFC 3339
}

// ReccoBeatsConfig configures the tempo and similarity service.
type ReccoBeatsConfig struct {
	BaseURL           string   `toml:"base_url" env:"RECCOBEATS_BASE_URL"`
	RequestsPerSecond float64  `toml:"requests_per_second" env:"RECCOBEATS_RPS"`
	Timeout           Duration `toml:"timeout"`
}

// DatabaseConfig contains the cache store settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"STRIDE_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PipelineConfig tunes the discovery pipeline.
type PipelineConfig struct {
	Retention       Duration `toml:"retention"`        // tempo records and recommendation lists
	LibraryTTL      Duration `toml:"library_ttl"`      // library snapshots
	PoolCeiling     int      `toml:"pool_ceiling"`     // stop expanding once the pool reaches this size
	SimilarLimit    int      `toml:"similar_limit"`    // similar tracks requested per seed
	BatchSize       int      `toml:"batch_size"`       // tempo lookups per request
	TopLimit        int      `toml:"top_limit"`        // top tracks requested
	SavedLimit      int      `toml:"saved_limit"`      // 0 = whole saved library
	IncludeArtists  bool     `toml:"include_artists"`  // seed with top artists' top tracks
	ExpandThreshold int      `toml:"expand_threshold"` // skip expansion for libraries at least this large; 0 = always expand
}

// PlaylistConfig controls the playlist written after a run.
type PlaylistConfig struct {
	NameTemplate string `toml:"name_template"`
	Description  string `toml:"description"`
	Public       bool   `toml:"public"`
}

// Duration wraps [time.Duration] so it can be written as "720h" in TOML and environment variables.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored OAuth2 token, or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if expiry, err := time.Parse(time.RFC3339, s.TokenExpiry); err == nil {
		token.Expiry = expiry
	}
	return token
}

// Update stores the given token. The refresh token is kept when the new token omits it.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidInput)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		s.TokenExpiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// Validate reports configuration values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Pipeline.Retention.Duration <= 0:
		return fmt.Errorf("%w: pipeline.retention must be positive", ErrInvalidConfig)
	case c.Pipeline.LibraryTTL.Duration <= 0:
		return fmt.Errorf("%w: pipeline.library_ttl must be positive", ErrInvalidConfig)
	case c.Pipeline.BatchSize <= 0 || c.Pipeline.BatchSize > 40:
		return fmt.Errorf("%w: pipeline.batch_size must be between 1 and 40", ErrInvalidConfig)
	case c.Pipeline.SimilarLimit <= 0 || c.Pipeline.SimilarLimit > 100:
		return fmt.Errorf("%w: pipeline.similar_limit must be between 1 and 100", ErrInvalidConfig)
	case c.Pipeline.PoolCeiling <= 0:
		return fmt.Errorf("%w: pipeline.pool_ceiling must be positive", ErrInvalidConfig)
	case c.Pipeline.TopLimit <= 0 || c.Pipeline.TopLimit > 50:
		return fmt.Errorf("%w: pipeline.top_limit must be between 1 and 50", ErrInvalidConfig)
	case c.Pipeline.SavedLimit < 0 || c.Pipeline.ExpandThreshold < 0:
		return fmt.Errorf("%w: pipeline limits cannot be negative", ErrInvalidConfig)
	case !validNameTemplate(c.Playlist.NameTemplate):
		return fmt.Errorf("%w: playlist.name_template may only contain a single %%d verb, got %q", ErrInvalidConfig, c.Playlist.NameTemplate)
	}
	return nil
}

// validNameTemplate accepts plain text or text with exactly one %d for the cadence.
func validNameTemplate(template string) bool {
	switch strings.Count(template, "%") {
	case 0:
		return true
	case 1:
		return strings.Contains(template, "%d")
	default:
		return false
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults; environment variables override both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config fields from their env-tagged environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file at path when it exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML. The file holds tokens, so it is written owner-only.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
