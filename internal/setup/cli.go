package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommand returns the "setup" command tree.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().String("config", "", "client config file (default: platform location)")

	cmd.AddCommand(newRegisterCommand(), newUnregisterCommand(), newStatusCommand())
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var opts Options
	var yes bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add this server to the client configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			if opts.BinaryPath == "" {
				if exe, err := os.Executable(); err == nil {
					opts.BinaryPath = exe
				}
			}

			out := cmd.OutOrStdout()
			configPath, err := resolveConfigPath(opts.ConfigPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Config file:   %s\n", configPath)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			if opts.DataDir != "" {
				fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)
			}

			if !yes && !confirm(cmd.InOrStdin(), out, "Proceed with registration? [Y/n]: ") {
				fmt.Fprintln(out, "Registration cancelled.")
				return nil
			}

			opts.ConfigPath = configPath
			if _, err := Register(opts); err != nil {
				return fmt.Errorf("failed to register server: %w", err)
			}

			fmt.Fprintln(out, "Server registered. Restart the client to load it.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "path of the mcp-server binary")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory for the audit database")
	cmd.Flags().StringVar(&opts.SeedFile, "seed-file", "", "JSON hospital catalog to load instead of the bundled one")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newUnregisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister",
		Short: "Remove this server from the client configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			removed, err := Unregister(configPath)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Server removed from the client configuration.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Server was not registered.")
			}
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current setup status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			status, err := GetStatus(configPath)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printStatus(out io.Writer, status *Status) {
	fmt.Fprintln(out, "Client:")
	fmt.Fprintf(out, "  Config path: %s\n", status.ConfigPath)
	fmt.Fprintf(out, "  Registered:  %s\n", mark(status.Registered))
	if status.Registered {
		fmt.Fprintf(out, "  Binary:      %s (%s)\n", status.ServerPath, found(status.BinaryFound))
	}

	fmt.Fprintln(out, "Data directory:")
	fmt.Fprintf(out, "  Path:      %s (%s)\n", status.DataDir, found(status.DataDirFound))
	fmt.Fprintf(out, "  Alerts DB: %s\n", found(status.AlertsDB))

	if len(status.Issues) > 0 {
		fmt.Fprintln(out, "Issues:")
		for _, issue := range status.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func found(ok bool) string {
	if ok {
		return "found"
	}
	return "missing"
}
