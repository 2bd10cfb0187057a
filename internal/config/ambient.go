package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Ambient holds process-wide defaults loaded from the environment (and an
// optional .env file), resolved once at startup ahead of the per-job
// field table.
type Ambient struct {
	StateDir string // LLMBATCH_STATE_DIR override for the platform app-data root
	LogLevel string // LOG_LEVEL
	AppName  string // LLMBATCH_APP_NAME, used for the User-Agent and app-data dir name
}

// LoadAmbient loads .env (if present, overriding pre-set environment
// variables, matching the reference loader's Overload() semantics) and
// reads the ambient engine-wide settings.
func LoadAmbient() Ambient {
	_ = godotenv.Overload()

	appName := strings.TrimSpace(os.Getenv("LLMBATCH_APP_NAME"))
	if appName == "" {
		appName = "llmbatch"
	}

	return Ambient{
		StateDir: strings.TrimSpace(os.Getenv("LLMBATCH_STATE_DIR")),
		LogLevel: strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		AppName:  appName,
	}
}
