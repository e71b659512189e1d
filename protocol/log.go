package protocol

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func componentLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
