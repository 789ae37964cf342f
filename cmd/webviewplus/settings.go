package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/settings"
)

// globalScopeName addresses settings.GlobalScope on the command line.
const globalScopeName = "global"

func newSettingsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write persisted viewer settings",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newSettingsGetCmd(&cfgPath))
	cmd.AddCommand(newSettingsSetCmd(&cfgPath))

	return cmd
}

func newSettingsGetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <scope> <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			value, ok := a.store.Get(scopeArg(args[0]), args[1])
			if !ok {
				return fmt.Errorf("setting %s/%s is not set", args[0], args[1])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

func newSettingsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <scope> <key> <value>",
		Short: "Persist a setting",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			if err := a.store.Set(scopeArg(args[0]), args[1], args[2]); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("setting saved", "scope", args[0], "key", args[1], "path", a.store.Path())
			return nil
		},
	}
}

func scopeArg(scope string) string {
	if strings.EqualFold(strings.TrimSpace(scope), globalScopeName) {
		return settings.GlobalScope
	}
	return scope
}
