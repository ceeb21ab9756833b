package main

import (
	"fmt"
	"os"

	"github.com/hisiddique/bloodathome/cmd/bootstrap"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "bloodathome",
	Short:        "Booking engine for at-home and in-clinic blood tests.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".env", "env file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newMigrateCommand())
}

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrate {
				if err := bootstrap.Migrate(cfgFile, true, 0); err != nil {
					return err
				}
			}

			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Close()

			return app.Serve()
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before starting")

	return cmd
}

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the background worker (notifications, draft reaper)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Close()

			return app.Work()
		},
	}
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Migrate(cfgFile, true, 0)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Migrate(cfgFile, false, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
