package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/appconfig"
	"pkt.systems/webviewplus/internal/panel"
	"pkt.systems/webviewplus/internal/version"
	"pkt.systems/webviewplus/schema"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check browser engine, settings and web app locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			a, err := loadApp(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath, "settings", a.store.Path(), "language", a.language)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "webviewplus: %s\n", version.Get())
			if override := a.prefs.WebAppURL(); override != "" {
				_, _ = fmt.Fprintf(out, "web app: %s (override)\n", override)
			} else {
				found := false
				for _, dir := range []string{a.cfg.DataDir, a.cfg.PluginDir} {
					if strings.TrimSpace(dir) == "" {
						continue
					}
					index := filepath.Join(dir, panel.WebAppDirName, "index.html")
					if _, err := os.Stat(index); err == nil {
						_, _ = fmt.Fprintf(out, "web app: %s\n", index)
						found = true
						break
					}
				}
				if !found {
					_, _ = fmt.Fprintf(out, "web app: %s (no local build)\n", a.cfg.App.ApprovedURI)
				}
			}
			_, _ = fmt.Fprintf(out, "extensions: %s\n", strings.Join(a.prefs.Extensions().List(), ","))

			avail := a.detect(cmd.Context())
			if !avail.Available() {
				_, _ = fmt.Fprintf(out, "browser: unavailable\n%s\nDownload: %s\n", avail.Reason, a.cfg.Engine.DownloadURL)
				return fmt.Errorf("%w: %s", schema.ErrEngineUnavailable, avail.Reason)
			}
			browserVersion := avail.Version
			if browserVersion == "" {
				browserVersion = "unknown"
			}
			_, _ = fmt.Fprintf(out, "browser: %s (version %s)\n", avail.ExecPath, browserVersion)
			logger.Info("doctor ok", "browser", avail.ExecPath, "version", browserVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
