package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/schema"
)

type contextKey int

const panelKey contextKey = 0

// WithPanel annotates the logger with the panel id if present.
func WithPanel(ctx context.Context, panelID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if panelID != "" {
		if current, ok := ctx.Value(panelKey).(string); ok && current == panelID {
			return log
		}
		log = log.With("panel", panelID)
	}
	return log
}

// WithFile annotates the logger with file metadata when available.
func WithFile(log pslog.Logger, file schema.ActiveFile) pslog.Logger {
	if file.Name != "" {
		log = log.With("file", file.Name)
	}
	if file.Extension != "" {
		log = log.With("ext", file.Extension)
	}
	return log
}

// WithCommand annotates the logger with an inbound command name.
func WithCommand(log pslog.Logger, cmd schema.Command) pslog.Logger {
	if cmd == nil {
		return log
	}
	if name := cmd.Name(); name != "" {
		log = log.With("command", string(name))
	}
	return log
}

// ContextWithPanel stores the panel marker on the context for log de-duplication.
func ContextWithPanel(ctx context.Context, panelID string) context.Context {
	if ctx == nil || panelID == "" {
		return ctx
	}
	return context.WithValue(ctx, panelKey, panelID)
}

// ContextWithPanelLogger attaches the logger and panel marker to the context.
func ContextWithPanelLogger(ctx context.Context, log pslog.Logger, panelID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPanel(ctx, panelID)
}
