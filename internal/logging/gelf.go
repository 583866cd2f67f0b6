package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON handler that ships records to a Graylog
// GELF UDP input at addr.
func NewGELFHandler(addr, level string) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GELF writer for %s: %w", addr, err)
	}
	w.Facility = ServiceName
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return h, w, nil
}
