package config

import (
	"os"
	"time"

	"codegaming-service/internal/game"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Guests struct {
		TTL string `yaml:"ttl"`
	} `yaml:"guests"`
	Leaderboard struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"leaderboard"`
	Game map[string]ModeConfig `yaml:"game"`
}

// ModeConfig overrides the stock tuning of one game type. Zero values keep
// the defaults.
type ModeConfig struct {
	Lives         int    `yaml:"lives"`
	Points        int    `yaml:"points"`
	Questions     int    `yaml:"questions"`
	Difficulty    string `yaml:"difficulty"`
	QuestionTime  string `yaml:"question_time"`
	FeedbackDelay string `yaml:"feedback_delay"`
	SkipCostsLife bool   `yaml:"skip_costs_life"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Modes applies the config's per-mode overrides onto the stock tuning.
func (c Config) Modes() map[game.GameType]game.Mode {
	modes := game.DefaultModes()
	for name, override := range c.Game {
		mode, ok := modes[game.GameType(name)]
		if !ok {
			continue
		}
		if override.Lives > 0 {
			mode.InitialLives = override.Lives
		}
		if override.Points > 0 {
			mode.Points = override.Points
		}
		if override.Questions > 0 {
			mode.QuestionCount = override.Questions
		}
		if override.Difficulty != "" {
			mode.Difficulty = override.Difficulty
		}
		if override.QuestionTime != "" {
			mode.QuestionTime = TTLDuration(override.QuestionTime, mode.QuestionTime)
		}
		if override.FeedbackDelay != "" {
			mode.FeedbackDelay = TTLDuration(override.FeedbackDelay, mode.FeedbackDelay)
		}
		if override.SkipCostsLife {
			mode.SkipCostsLife = true
		}
		modes[game.GameType(name)] = mode
	}
	return modes
}
