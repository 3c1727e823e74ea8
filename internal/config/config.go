package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Token            string        `env:"TOKEN"`
	GuildID          string        `env:"GUILD_ID"`
	DatabaseURL      string        `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/signupbot?sslmode=disable"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrationsPath   string        `env:"MIGRATIONS_PATH" envDefault:"migrations"`
	GuildConfigPath  string        `env:"GUILD_CONFIG_PATH" envDefault:"guilds.toml"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty        bool          `env:"LOG_PRETTY" envDefault:"false"`
	DefaultLocale    string        `env:"DEFAULT_LOCALE" envDefault:"fr"`
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1m"`
	LogRetentionDays int           `env:"LOG_RETENTION_DAYS" envDefault:"90"`
}

// Load charge la configuration depuis les variables d'environnement et la valide.
func Load() (*Config, error) {
	// .env est optionnel lorsque les variables sont fournies par l'environnement (Docker, CI, etc.).
	_ = godotenv.Load()
	return Parse()
}

// Parse lit l'environnement courant sans toucher au fichier .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogRetention is how long audit log rows are kept.
func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.LogRetentionDays) * 24 * time.Hour
}

// validate applique toutes les règles métier sur la configuration chargée.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("config: TOKEN est requis et ne peut pas être vide")
	}

	parsed, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("config: DATABASE_URL invalide (%q): %w", c.DatabaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: DATABASE_URL invalide (%q): scheme ou host manquant", c.DatabaseURL)
	}

	if c.DBMaxConns <= 0 {
		return fmt.Errorf("config: DB_MAX_CONNS doit être positif")
	}
	// Pas de précision sous la minute : un tick plus court ne sert à rien.
	if c.TickInterval < time.Second {
		return fmt.Errorf("config: TICK_INTERVAL trop court (%s)", c.TickInterval)
	}
	if c.LogRetentionDays < 0 {
		return fmt.Errorf("config: LOG_RETENTION_DAYS ne peut pas être négatif")
	}
	if strings.TrimSpace(c.DefaultLocale) == "" {
		c.DefaultLocale = "fr"
	}

	return nil
}
