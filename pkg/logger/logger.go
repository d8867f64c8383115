// Package logger installs the process-wide zap logger used through
// zap.L() by every other package, matching the teacher's convention of a
// single InitLogger call in main before config or the router are built.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds and installs the global zap logger. It reads APP_ENV
// directly from the environment rather than internal/config, since it
// must run before config.InitConfig so that config errors are themselves
// logged structured.
func InitLogger() {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	log, err := cfg.Build()
	if err != nil {
		panic("logger: failed to build zap logger: " + err.Error())
	}

	zap.ReplaceGlobals(log)
}
