package config

import "github.com/ilyakaznacheev/cleanenv"

// Config carries everything read from the environment at startup. Handlers
// never touch the process environment; the token codec and the OAuth client
// receive their settings from here.
type Config struct {
	DatabaseURL        string `env:"DB_URL" env-required:"true"`
	JWTSecret          string `env:"JWT_SECRET_KEY" env-required:"true"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	Port               string `env:"PORT" env-default:"8080"`
}

func Load() (Config, error) {
	var cfg Config
	err := cleanenv.ReadEnv(&cfg)
	return cfg, err
}
