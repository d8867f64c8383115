package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
)

type AppEnv string

const (
	AppEnvDev  AppEnv = "dev"
	AppEnvProd AppEnv = "prod"
)

// allowedRoundTimes is the set of question/answer time budgets a game may
// be configured with. The original system only ever offered these three.
var allowedRoundTimes = map[int]bool{60: true, 90: true, 120: true}

// EnvConfig holds all environment variables for the application
type EnvConfig struct {
	Port    string `env:"PORT" envDefault:"8080"`
	Debug   bool   `env:"DEBUG" envDefault:"false"`
	AppEnv  AppEnv `env:"APP_ENV" envDefault:"prod"`
	AppName string `env:"APP_NAME" envDefault:"trivia-server"`

	DBPath string `env:"DB_PATH" envDefault:"./trivia.db"`

	MinPlayers int `env:"MIN_PLAYERS" envDefault:"2"`
	MaxPlayers int `env:"MAX_PLAYERS" envDefault:"16"`

	DefaultQuestionTime int `env:"DEFAULT_QUESTION_TIME" envDefault:"60"`
	DefaultAnswerTime   int `env:"DEFAULT_ANSWER_TIME" envDefault:"60"`

	// DeltaSeconds is the grace period consumers.py adds on top of every
	// configured timer before declaring a timeout.
	DeltaSeconds int `env:"DELTA_SECONDS" envDefault:"2"`
	// StartSeconds is the warm-up delay between game_started and the
	// first round actually starting.
	StartSeconds int `env:"START_SECONDS" envDefault:"5"`
	// QualifySeconds bounds how long the nosy has to grade the answers.
	QualifySeconds int `env:"QUALIFY_SECONDS" envDefault:"90"`
	// AssessSeconds bounds how long each qualifier has to assess the
	// graded answer assigned to them.
	AssessSeconds int `env:"ASSESS_SECONDS" envDefault:"30"`
}

// Delta returns the grace period as a time.Duration for timer scheduling.
func (c *EnvConfig) Delta() time.Duration { return time.Duration(c.DeltaSeconds) * time.Second }

// Start returns the round warm-up delay as a time.Duration.
func (c *EnvConfig) Start() time.Duration { return time.Duration(c.StartSeconds) * time.Second }

// Qualify returns the qualify-phase bound as a time.Duration.
func (c *EnvConfig) Qualify() time.Duration { return time.Duration(c.QualifySeconds) * time.Second }

// Assess returns the assess-phase bound as a time.Duration.
func (c *EnvConfig) Assess() time.Duration { return time.Duration(c.AssessSeconds) * time.Second }

// ValidRoundTime reports whether seconds is an allowed question/answer time
// budget for a new game.
func ValidRoundTime(seconds int) bool {
	return allowedRoundTimes[seconds]
}

var (
	appConfig *EnvConfig
	once      sync.Once
)

// loadConfig loads and validates all environment variables
func loadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if !ValidRoundTime(cfg.DefaultQuestionTime) {
		return nil, fmt.Errorf("config: DEFAULT_QUESTION_TIME %d is not one of 60/90/120", cfg.DefaultQuestionTime)
	}
	if !ValidRoundTime(cfg.DefaultAnswerTime) {
		return nil, fmt.Errorf("config: DEFAULT_ANSWER_TIME %d is not one of 60/90/120", cfg.DefaultAnswerTime)
	}
	if cfg.MinPlayers < 2 {
		return nil, fmt.Errorf("config: MIN_PLAYERS must be at least 2")
	}
	if cfg.MaxPlayers < cfg.MinPlayers {
		return nil, fmt.Errorf("config: MAX_PLAYERS must be >= MIN_PLAYERS")
	}
	return cfg, nil
}

// InitConfig initializes the config only once
func InitConfig() (*EnvConfig, error) {
	var err error
	once.Do(func() {
		appConfig, err = loadConfig()
		zap.L().Info("Config loaded")
	})
	return appConfig, err
}

// Env returns the config. Panics if not initialized.
func Env() *EnvConfig {
	if appConfig == nil {
		zap.L().Panic("config not initialized — call InitConfig() first")
	}
	return appConfig
}
