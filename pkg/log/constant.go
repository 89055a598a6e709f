package log

const (
	// ModeProduction selects zap's production encoder settings.
	ModeProduction = "production"
	// ModeDevelopment selects zap's development encoder settings.
	ModeDevelopment = "development"

	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Level names accepted in LOGGER_LEVEL.
const (
	LevelDebug  = "debug"
	LevelInfo   = "info"
	LevelWarn   = "warn"
	LevelError  = "error"
	LevelFatal  = "fatal"
	LevelPanic  = "panic"
	LevelDPanic = "dpanic"
)
