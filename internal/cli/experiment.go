package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"labflow/internal/adapters/localstore"
	"labflow/internal/adapters/turso"
	"labflow/internal/infrastructure/config"
	"labflow/internal/ports"
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Inspect and manage experiments",
}

var experimentOffline bool

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openExperimentRepo()
		if err != nil {
			return err
		}
		defer closeRepo()

		experiments, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTEPS\tPROGRESS\tCREATED")
		for _, exp := range experiments {
			completed := 0
			for _, s := range exp.Steps {
				if s.Completed {
					completed++
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d%%\t%s\n",
				exp.ID, exp.Title, completed, len(exp.Steps), exp.Progress,
				exp.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var experimentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an experiment and its steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openExperimentRepo()
		if err != nil {
			return err
		}
		defer closeRepo()

		exp, err := repo.GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", exp.Title)
		if exp.Description != "" {
			fmt.Printf("%s\n", exp.Description)
		}
		fmt.Printf("Progress: %d%%\n\n", exp.Progress)
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "#\tDONE\tDESCRIPTION\tSCHEDULED")
		for i, s := range exp.Steps {
			mark := " "
			if s.Completed {
				mark = "x"
			}
			scheduled := "-"
			if s.ScheduledTime != nil {
				scheduled = s.ScheduledTime.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t[%s]\t%s\t%s\n", i, mark, s.Description, scheduled)
		}
		return w.Flush()
	},
}

var experimentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openExperimentRepo()
		if err != nil {
			return err
		}
		defer closeRepo()

		if err := repo.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted experiment %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(experimentCmd)
	experimentCmd.PersistentFlags().BoolVar(&experimentOffline, "offline", false, "Use the local file-backed experiment store")
	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentShowCmd)
	experimentCmd.AddCommand(experimentDeleteCmd)
}

func openExperimentRepo() (ports.ExperimentRepository, func(), error) {
	if experimentOffline {
		dir := os.Getenv("LABFLOW_DATA_DIR")
		if dir == "" {
			var err error
			dir, err = localstore.DefaultRootDir()
			if err != nil {
				return nil, nil, err
			}
		}
		repo, err := localstore.NewExperimentStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	db, err := turso.NewDB(cfg.URL, cfg.AuthToken)
	if err != nil {
		return nil, nil, err
	}
	return turso.NewExperimentRepository(db), func() { _ = db.Close() }, nil
}
