// Command token mints a development access token signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/learning-platform/internal/auth/jwt"
)

func main() {
	var (
		subject = flag.String("subject", "dev-instructor", "Token subject")
		role    = flag.String("role", "instructor", "Role claim")
		ttl     = flag.Duration("ttl", 12*time.Hour, "Token lifetime")
		envFile = flag.String("env-file", "configs/.env", "Optional dotenv file loaded before reading JWT_SECRET")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", "token").Logger()

	_ = godotenv.Load(*envFile)

	issuer := os.Getenv("JWT_ISSUER")
	manager, err := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(os.Getenv("JWT_SECRET")),
		TTL:    *ttl,
		Issuer: issuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET must be set")
	}

	token, err := manager.Issue(*subject, *role)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(token)
}
