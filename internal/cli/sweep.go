package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/pkg/storage"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive sessions idle past the retention window",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sweeper, err := storage.NewSweeper(a.sessions, storage.SweeperConfig{
		ArchiveDir: a.cfg.Sessions.ArchiveDir,
		Retention:  time.Duration(a.cfg.Sessions.RetentionHours) * time.Hour,
		Schedule:   a.cfg.Sessions.SweepSchedule,
	})
	if err != nil {
		return err
	}

	archived, err := sweeper.Sweep()
	if err != nil {
		return err
	}

	if len(archived) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to archive")
		return nil
	}
	for _, id := range archived {
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s\n", id)
	}
	return nil
}
