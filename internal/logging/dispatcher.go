package logging

import "github.com/rs/zerolog"

// badKey names a value that has no key, as log/slog does.
const badKey = "!BADKEY"

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger wraps a zerolog logger, usually one from ComponentLogger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields converts slog-style key/value pairs. A value without a string key
// is kept under !BADKEY and errors are logged by message.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); {
		key, ok := keysAndValues[i].(string)
		if !ok || i+1 == len(keysAndValues) {
			fields[badKey] = fieldValue(keysAndValues[i])
			i++
			continue
		}
		fields[key] = fieldValue(keysAndValues[i+1])
		i += 2
	}
	return fields
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}
