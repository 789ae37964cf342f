package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/version"
	"pkt.systems/webviewplus/schema"
)

const settleTimeout = 30 * time.Second

func newPreviewCmd() *cobra.Command {
	var cfgPath string
	var openDownload bool
	cmd := &cobra.Command{
		Use:   "preview <file>...",
		Short: "Preview files and keep the viewer open until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			a, err := loadApp(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			logger.Info("preview start", "version", version.Current(), "settings", a.store.Path(), "language", a.language)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			viewer := a.newViewer()
			defer func() {
				if err := viewer.Close(); err != nil {
					logger.Warn("viewer close failed", "err", err)
				}
			}()
			if err := viewer.Init(ctx); err != nil {
				return err
			}
			p := viewer.Panel()
			settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
			err = p.WaitSettled(settleCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("browser engine did not start: %w", err)
			}
			if fb, missing := p.Fallback(); missing {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\nDownload: %s\n", fb.Reason, fb.DownloadURL)
				if openDownload {
					if err := p.OpenDownload(); err != nil {
						logger.Warn("open download failed", "err", err)
					}
				}
				return p.Err()
			}

			host := newConsoleHost(cmd.OutOrStdout())
			viewed := 0
			for _, path := range args {
				if ctx.Err() != nil {
					break
				}
				if !viewer.CanHandle(path) {
					logger.Warn("preview skipped", "path", path, "err", schema.ErrNotHandled)
					continue
				}
				if viewed > 0 {
					viewer.Cleanup()
				}
				viewer.Prepare(path, host)
				if err := viewer.View(ctx, path, host); err != nil {
					return err
				}
				viewed++
			}
			if viewed == 0 {
				return schema.ErrNotHandled
			}
			<-ctx.Done()
			viewer.Cleanup()
			logger.Info("preview stopped", "state", p.State().String(), "source", p.Source())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&openDownload, "open-download", false, "open the browser download page when no engine is found")
	return cmd
}
