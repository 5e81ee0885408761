package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tclog "github.com/testcontainers/testcontainers-go/log"
)

// testcontainers prefixes its lifecycle messages with a status glyph.
var containerMessageLevels = []struct {
	prefix string
	level  slog.Level
}{
	{"❌", slog.LevelError},
	{"✅", slog.LevelDebug},
	{"🐳", slog.LevelDebug},
	{"🔔", slog.LevelDebug},
	{"⏳", slog.LevelDebug},
}

// containerLogger routes testcontainers output to slog, tagged with the ledger image.
type containerLogger struct {
	log *slog.Logger
}

func newContainerLogger(log *slog.Logger, image string) *containerLogger {
	return &containerLogger{log: log.With("component", "ledger", "image", image)}
}

func (l *containerLogger) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	if strings.Contains(msg, "Connected to docker:") {
		return
	}
	level, msg := classifyContainerMessage(msg)
	l.log.Log(context.Background(), level, msg)
}

func classifyContainerMessage(msg string) (slog.Level, string) {
	for _, m := range containerMessageLevels {
		if rest, ok := strings.CutPrefix(msg, m.prefix); ok {
			return m.level, strings.TrimSpace(rest)
		}
	}
	return slog.LevelInfo, msg
}

// SetTestcontainersLogger routes testcontainers' global logging, used before a ledger image is
// chosen (provider checks, reaper), through log.
func SetTestcontainersLogger(log *slog.Logger) {
	tclog.SetDefault(newContainerLogger(log, DefaultImage))
}
