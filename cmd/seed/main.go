// Command seed loads a YAML content document into Postgres.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/learning-platform/internal/config"
	"github.com/gokatarajesh/learning-platform/internal/content"
)

func main() {
	var (
		file    = flag.String("file", "configs/content.example.yaml", "YAML content document to load")
		envFile = flag.String("env-file", "configs/.env", "Optional dotenv file loaded before reading PG_* variables")
		timeout = flag.Duration("timeout", time.Minute, "Overall seed timeout")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", "seed").Logger()

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug().Err(err).Str("file", *envFile).Msg("no dotenv file loaded")
	}

	pg, err := config.LoadPostgres()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}

	source, err := content.LoadYAMLFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to load content")
	}
	doc := source.Document()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	poolCfg, err := content.ParseURL(pg.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database URL")
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	store, err := content.NewPostgresStore(pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build store")
	}
	if err := store.Seed(ctx, doc); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().
		Int("modules", len(doc.Modules)).
		Int("assessments", len(doc.Assessments)).
		Str("file", *file).
		Msg("content seeded")
}
