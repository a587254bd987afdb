package cli

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"labflow/internal/adapters/turso"
	"labflow/internal/infrastructure/config"
	"labflow/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long:  `Apply or roll back schema migrations against the configured Turso database.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openMigrateDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return migrate.Up(cmd.Context(), db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll back migrations to the given version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil || target < 0 {
			return fmt.Errorf("invalid target version %q", args[0])
		}
		db, err := openMigrateDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return migrate.DownTo(cmd.Context(), db, target)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openMigrateDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrate.EnsureMigrationsTable(cmd.Context(), db); err != nil {
			return err
		}
		version, dirty, err := migrate.CurrentVersion(cmd.Context(), db)
		if err != nil {
			return err
		}
		if dirty {
			fmt.Printf("version %d (dirty)\n", version)
		} else {
			fmt.Printf("version %d\n", version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openMigrateDB() (*sql.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	return turso.NewDB(cfg.URL, cfg.AuthToken)
}
