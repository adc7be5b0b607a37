package dice

import "go.uber.org/zap"

// LoggedSource wraps a Source and logs every draw at debug level.
type LoggedSource struct {
	src    Source
	name   string
	logger *zap.Logger
}

// NewLoggedSource creates a Source that draws from src and logs each value to
// logger under the given stream name (e.g. "outcome", "animation").
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, name string, logger *zap.Logger) *LoggedSource {
	return &LoggedSource{src: src, name: name, logger: logger}
}

// Intn draws from the wrapped Source and logs the bound and the result.
//
// Precondition: n > 0.
// Postcondition: result logged; returns a value in [0, n).
func (l *LoggedSource) Intn(n int) int {
	v := l.src.Intn(n)
	if ce := l.logger.Check(zap.DebugLevel, "random draw"); ce != nil {
		ce.Write(
			zap.String("stream", l.name),
			zap.Int("n", n),
			zap.Int("value", v),
		)
	}
	return v
}
