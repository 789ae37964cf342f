// Package protocol implements the message exchange with the web app: inbound
// command dispatch, the readiness handshake and every outbound message.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/internal/logx"
	"pkt.systems/webviewplus/internal/prefs"
	"pkt.systems/webviewplus/internal/transfer"
	"pkt.systems/webviewplus/schema"
)

// Relauncher restarts the host process. Relaunch does not return on success.
type Relauncher interface {
	Relaunch() error
}

// Config wires a Router.
type Config struct {
	Poster     engine.Poster
	Transfer   *transfer.Transfer
	Prefs      *prefs.Prefs
	Relauncher Relauncher
	// Language is the UI language sent in init data, e.g. "en-US".
	Language string
	// ActiveFile returns the file currently targeted for preview.
	ActiveFile func() (schema.ActiveFile, bool)
	Logger     pslog.Logger
}

// Router is driven from the panel loop and is not safe for concurrent use.
type Router struct {
	cfg        Config
	log        pslog.Logger
	ready      bool
	extensions prefs.Extensions
	detect     bool
}

// New builds a NotReady router and loads the cached preferences.
func New(cfg Config) *Router {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	r := &Router{cfg: cfg, log: log}
	r.reloadExtensions()
	r.reloadDetectEncoding()
	return r
}

// Ready reports whether the web app completed the readiness handshake.
func (r *Router) Ready() bool { return r.ready }

// Extensions returns the cached allow-list.
func (r *Router) Extensions() prefs.Extensions { return r.extensions }

// DetectEncoding returns the cached encoding detection flag.
func (r *Router) DetectEncoding() bool { return r.detect }

// Reset returns to NotReady. Only a new engine instance warrants this.
func (r *Router) Reset() { r.ready = false }

// HandleMessage decodes and dispatches one web message. Malformed and unknown
// messages are logged and ignored; the returned error reports a failed side
// effect of a recognised command.
func (r *Router) HandleMessage(ctx context.Context, raw string) error {
	cmd, err := schema.DecodeCommand([]byte(raw))
	if err != nil {
		r.log.Warn("protocol message ignored", "err", err)
		return nil
	}
	log := logx.WithCommand(r.log, cmd)
	switch c := cmd.(type) {
	case schema.AppReadyForData:
		return r.onReady(ctx, log)
	case schema.UpdateExtensions:
		if err := r.cfg.Prefs.SaveExtensions(c.Extensions); err != nil {
			log.Error("protocol persist failed", "err", err)
			return err
		}
		r.reloadExtensions()
		log.Info("protocol extensions updated", "count", r.extensions.Len())
	case schema.SetDetectEncoding:
		if err := r.cfg.Prefs.SetDetectEncoding(c.Enabled); err != nil {
			log.Error("protocol persist failed", "err", err)
			return err
		}
		r.reloadDetectEncoding()
		log.Debug("protocol detect encoding updated", "enabled", r.detect)
	case schema.SetShowTrayIcon:
		if err := r.cfg.Prefs.SetShowTrayIcon(c.Enabled); err != nil {
			log.Error("protocol persist failed", "err", err)
			return err
		}
	case schema.SetUseTransparency:
		if err := r.cfg.Prefs.SetUseTransparency(c.Enabled); err != nil {
			log.Error("protocol persist failed", "err", err)
			return err
		}
	case schema.RequestRestart:
		if r.cfg.Relauncher == nil {
			log.Warn("protocol restart unsupported")
			return nil
		}
		log.Info("protocol restart requested")
		if err := r.cfg.Relauncher.Relaunch(); err != nil {
			log.Error("protocol restart failed", "err", err)
			return err
		}
	case schema.UnknownCommand:
		log.Debug("protocol unknown command ignored")
	default:
		log.Warn("protocol unhandled command", "type", fmt.Sprintf("%T", c))
	}
	return nil
}

func (r *Router) onReady(ctx context.Context, log pslog.Logger) error {
	if r.ready {
		log.Debug("protocol ready repeated")
	}
	r.ready = true
	init := schema.InitData{
		LangCode:        r.cfg.Language,
		DetectEncoding:  r.detect,
		ShowTrayIcon:    r.cfg.Prefs.ShowTrayIcon(),
		UseTransparency: r.cfg.Prefs.UseTransparency(),
	}
	msg, err := init.Message()
	if err != nil {
		return err
	}
	if err := r.cfg.Poster.PostString(msg); err != nil {
		log.Error("protocol init data failed", "err", err)
		return err
	}
	log.Debug("protocol init data sent", "lang", init.LangCode)
	if r.cfg.ActiveFile == nil {
		return nil
	}
	file, ok := r.cfg.ActiveFile()
	if !ok {
		return nil
	}
	if err := r.SendFile(ctx, file); err != nil {
		logx.WithFile(log, file).Error("protocol file send failed", "err", err)
		return err
	}
	return nil
}

// SendFile prepares file and posts it with its FileData sidecar. It fails
// with schema.ErrNotReady before the handshake.
func (r *Router) SendFile(_ context.Context, file schema.ActiveFile) error {
	if !r.ready {
		return schema.ErrNotReady
	}
	buf, data, err := r.cfg.Transfer.Prepare(file, r.detect)
	if err != nil {
		return err
	}
	sidecar, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := r.cfg.Poster.PostSharedBuffer(buf, engine.AccessReadOnly, string(sidecar)); err != nil {
		return err
	}
	logx.WithFile(r.log, file).Info("protocol file sent", "binary", data.IsBinary, "bytes", data.FileSize)
	return nil
}

// SendUnload tells the web app to drop the current document.
func (r *Router) SendUnload() error {
	return r.notice(schema.MessageUnload)
}

// SendNewWindowRejected reports a suppressed window.open.
func (r *Router) SendNewWindowRejected() error {
	return r.notice(schema.MessageNewWindowRejected)
}

// SendFrameNavigationRejected reports a cancelled frame navigation.
func (r *Router) SendFrameNavigationRejected() error {
	return r.notice(schema.MessageFrameNavigationRejected)
}

func (r *Router) notice(msg string) error {
	if !r.ready {
		r.log.Trace("protocol notice skipped", "msg", msg)
		return nil
	}
	if err := r.cfg.Poster.PostString(msg); err != nil {
		r.log.Warn("protocol notice failed", "msg", msg, "err", err)
		return err
	}
	return nil
}

func (r *Router) reloadExtensions() {
	r.extensions = r.cfg.Prefs.Extensions()
}

func (r *Router) reloadDetectEncoding() {
	r.detect = r.cfg.Prefs.DetectEncoding()
}
