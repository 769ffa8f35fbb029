package logging

import (
	"io"
	"log/slog"

	"github.com/go-chi/httplog/v3"
)

// New returns a JSON logger whose attribute keys follow the ECS schema, so
// application and request logs share one format.
func New(w io.Writer, level slog.Level, app, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app),
		slog.String("env", env),
	)
}
