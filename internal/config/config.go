package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"learning-platform"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Generation Generation
	Context    Context
	Assessment Assessment
	Content    Content
	Jobs       Jobs
}

// Postgres captures connection info for the SQL database. The fields are only
// required when something actually connects, see Validate.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Validate reports every missing connection setting.
func (p Postgres) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"PG_HOST", p.Host},
		{"PG_USER", p.User},
		{"PG_PASSWORD", p.Password},
		{"PG_DATABASE", p.Database},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	return errors.Join(errs...)
}

// LoadPostgres parses and validates only the database settings, for commands
// that need nothing else.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse database config: %w", err)
	}
	if err := pg.Validate(); err != nil {
		return Postgres{}, err
	}
	return pg, nil
}

// URL renders the pgx connection string.
func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis holds job queue + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth. An empty secret disables auth.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET" envDefault:""`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"learning-platform"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"1h"`
}

// Generation configures the text generation backend and its retry policy.
type Generation struct {
	Backend         string        `env:"GENERATION_BACKEND" envDefault:"gemini"`
	Model           string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	APIKey          string        `env:"GEMINI_API_KEY" envDefault:""`
	GatewayURL      string        `env:"AI_GATEWAY_URL" envDefault:""`
	GatewayKey      string        `env:"AI_GATEWAY_API_KEY" envDefault:""`
	TokenURL        string        `env:"AI_GATEWAY_TOKEN_URL" envDefault:""`
	ClientID        string        `env:"AI_GATEWAY_CLIENT_ID" envDefault:""`
	ClientSecret    string        `env:"AI_GATEWAY_CLIENT_SECRET" envDefault:""`
	Scopes          []string      `env:"AI_GATEWAY_SCOPES" envSeparator:"," envDefault:""`
	HTTPTimeout     time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"60s"`
	Temperature     float32       `env:"GENERATION_TEMPERATURE" envDefault:"0.7"`
	MaxOutputTokens int32         `env:"GENERATION_MAX_OUTPUT_TOKENS" envDefault:"4096"`
	MaxAttempts     int           `env:"GENERATION_MAX_ATTEMPTS" envDefault:"3"`
	AttemptTimeout  time.Duration `env:"GENERATION_ATTEMPT_TIMEOUT" envDefault:"45s"`
	InitialBackoff  time.Duration `env:"GENERATION_INITIAL_BACKOFF" envDefault:"1s"`
}

// RetryBudget is the longest a single generation can take: every attempt
// running to its timeout plus the doubling waits between them.
func (g Generation) RetryBudget() time.Duration {
	budget := time.Duration(g.MaxAttempts) * g.AttemptTimeout
	for i := 0; i < g.MaxAttempts-1; i++ {
		budget += g.InitialBackoff * time.Duration(1<<uint(i))
	}
	return budget
}

// Context bounds the material sent to the generator.
type Context struct {
	MaxRunes    int    `env:"CONTEXT_MAX_RUNES" envDefault:"12000"`
	Placeholder string `env:"CONTEXT_PLACEHOLDER" envDefault:""`
}

// Assessment limits incoming generation requests.
type Assessment struct {
	MaxQuestions int `env:"ASSESSMENT_MAX_QUESTIONS" envDefault:"50"`
}

// Content selects where course material is read from.
type Content struct {
	Source   string `env:"CONTENT_SOURCE" envDefault:"postgres"`
	YAMLPath string `env:"CONTENT_YAML_PATH" envDefault:"configs/content.example.yaml"`
}

// Jobs governs the asynchronous generation pipeline.
type Jobs struct {
	QueueKey      string        `env:"JOBS_QUEUE_KEY" envDefault:"assessment:jobs:queue"`
	UpdateChannel string        `env:"JOBS_UPDATE_CHANNEL" envDefault:"assessment:jobs:updates"`
	ResultTTL     time.Duration `env:"JOBS_RESULT_TTL" envDefault:"24h"`
	Workers       int           `env:"JOBS_WORKERS" envDefault:"2"`
	JobTimeout    time.Duration `env:"JOBS_TIMEOUT" envDefault:"3m"`
	PollWait      time.Duration `env:"JOBS_POLL_WAIT" envDefault:"5s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Generation.Backend {
	case "gemini":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	case "gateway":
		if c.Generation.GatewayURL == "" {
			return fmt.Errorf("AI_GATEWAY_URL is required for the gateway backend")
		}
	default:
		return fmt.Errorf("unknown GENERATION_BACKEND %q", c.Generation.Backend)
	}
	switch c.Content.Source {
	case "postgres":
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("CONTENT_SOURCE=postgres: %w", err)
		}
	case "yaml":
	default:
		return fmt.Errorf("unknown CONTENT_SOURCE %q", c.Content.Source)
	}
	if c.Assessment.MaxQuestions <= 0 {
		return fmt.Errorf("ASSESSMENT_MAX_QUESTIONS must be positive")
	}
	if budget := c.Generation.RetryBudget(); c.Jobs.JobTimeout < budget {
		return fmt.Errorf("JOBS_TIMEOUT %s is shorter than the generation retry budget %s", c.Jobs.JobTimeout, budget)
	}
	return nil
}
