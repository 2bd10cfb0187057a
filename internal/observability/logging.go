package observability

import (
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes zerolog with sane defaults for the engine process:
// a console writer when stdout is a terminal, structured JSON otherwise.
func InitLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w = os.Stdout
	if isatty.IsTerminal(w.Fd()) {
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		log.Logger = log.Output(cw).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(w).With().Timestamp().Logger()
	}

	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}
