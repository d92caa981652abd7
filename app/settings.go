package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/GoPowerDNS-Admin/go-settings/internal/daemon"
	"github.com/GoPowerDNS-Admin/go-settings/internal/settings"
)

const nullValue = "<null>"

func init() { //nolint: gochecknoinits
	setCmd.Flags().BoolVar(&setNull, "null", false, "store null instead of a value")

	rootCmd.AddCommand(getCmd, setCmd, listCmd, deleteCmd)
}

var (
	setNull bool

	getCmd = &cobra.Command{
		Use:   "get NAME",
		Short: "Print the value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: withSettings(func(ctx context.Context, cmd *cobra.Command, svc *settings.Default, args []string) error {
			value, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}

			printValue(cmd.OutOrStdout(), value)

			return nil
		}),
	}

	setCmd = &cobra.Command{
		Use:   "set NAME [VALUE]",
		Short: "Create or update a setting",
		Args: func(cmd *cobra.Command, args []string) error {
			if setNull {
				return cobra.ExactArgs(1)(cmd, args)
			}

			return cobra.ExactArgs(2)(cmd, args) //nolint:mnd
		},
		RunE: withSettings(func(ctx context.Context, _ *cobra.Command, svc *settings.Default, args []string) error {
			var value *string
			if !setNull {
				value = &args[1]
			}

			return svc.Set(ctx, args[0], value)
		}),
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print all settings",
		Args:  cobra.NoArgs,
		RunE: withSettings(func(ctx context.Context, cmd *cobra.Command, svc *settings.Default, _ []string) error {
			all, err := svc.All(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range slices.Sorted(maps.Keys(all)) {
				_, _ = fmt.Fprintf(out, "%s=", name)
				printValue(out, all[name])
			}

			return nil
		}),
	}

	deleteCmd = &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a setting",
		Args:  cobra.ExactArgs(1),
		RunE: withSettings(func(ctx context.Context, _ *cobra.Command, svc *settings.Default, args []string) error {
			return svc.Delete(ctx, args[0])
		}),
	}
)

type settingsFunc func(ctx context.Context, cmd *cobra.Command, svc *settings.Default, args []string) error

// withSettings opens database and cache for the duration of one command.
func withSettings(fn settingsFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		d, err := daemon.Open(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		return fn(cmd.Context(), cmd, d.Settings(), args)
	}
}

func printValue(w io.Writer, value *string) {
	if value == nil {
		_, _ = fmt.Fprintln(w, nullValue)
		return
	}

	_, _ = fmt.Fprintln(w, *value)
}
