package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the resolved account, storage backend, feature
// flags and tuning values for a pipeline run, then emits a single
// structured zerolog event. One line tells you exactly how the publisher
// was configured when a run needs troubleshooting.
type StartupLogger struct {
	name         string
	initDuration time.Duration

	account  map[string]string
	storage  map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given command name
// (e.g. "post", "quota").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		account:  make(map[string]string),
		storage:  make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Account registers a non-sensitive account detail (user id, API version).
// Never pass tokens here.
func (s *StartupLogger) Account(label, value string) *StartupLogger {
	s.account[label] = value
	return s
}

// Storage registers a temporary-storage detail (backend name, bucket,
// repository). Only identifiers are logged, never credentials.
func (s *StartupLogger) Storage(label, value string) *StartupLogger {
	s.storage[label] = value
	return s
}

// Feature registers a boolean feature flag (e.g. "chained", "waitOnRateLimit").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took to complete.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	runDict := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv("THREADSPIPE_LOG_LEVEL"))

	evt = evt.Dict("run", runDict)

	if len(s.account) > 0 {
		evt = evt.Dict("account", dictFromMap(s.account))
	}
	if len(s.storage) > 0 {
		evt = evt.Dict("storage", dictFromMap(s.storage))
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
