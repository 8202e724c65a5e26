package heap

import (
	"log/slog"
	"os"
)

// Runtime debug flag for allocation logging - controlled by OSMEM_LOG_ALLOC env var.
var logAlloc = os.Getenv("OSMEM_LOG_ALLOC") != ""

func defaultLogger() *slog.Logger {
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})).With("component", "osmem")
	}
	return slog.New(slog.DiscardHandler)
}
