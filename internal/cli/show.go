package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a persisted session",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted session ids",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.sessions.LoadSession(args[0])
	if err != nil {
		return err
	}

	printSession(cmd, sess)
	fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", sess.Mode)
	if sess.Backend != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", sess.Backend)
	}
	if sess.OutlineID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Outline: %s\n", sess.OutlineID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Steps: %d\n", len(sess.Steps))
	for _, entry := range sess.State.History {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s (cycle %d)\n", entry.Sequence, entry.Kind, entry.Cycle)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ids, err := a.sessions.ListSessions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
