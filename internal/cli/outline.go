package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/pkg/session"
)

var (
	outlineBackend      string
	outlinePersona      string
	outlineTemplate     string
	outlineHistoryDepth int
)

var outlineCmd = &cobra.Command{
	Use:   "outline <idea>",
	Short: "Start an outline generation cycle",
	Long: `Start a new outline session for the given idea. The session begins at
the generate step; advance it with "inkwell step".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutline,
}

func init() {
	outlineCmd.Flags().StringVar(&outlineBackend, "backend", "", "backend to use (anthropic, openai)")
	outlineCmd.Flags().StringVar(&outlinePersona, "persona", "", "persona id for prompt enrichment")
	outlineCmd.Flags().StringVar(&outlineTemplate, "template", "", "template id for prompt enrichment")
	outlineCmd.Flags().IntVar(&outlineHistoryDepth, "history-depth", 0, "number of prior sessions to consider")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.orchestrator.StartOutlineCycle(cmd.Context(), session.OutlineCycleInput{
		Idea:         strings.Join(args, " "),
		HistoryDepth: outlineHistoryDepth,
		Backend:      outlineBackend,
		PersonaID:    outlinePersona,
		TemplateID:   outlineTemplate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", summary.SessionID)
	fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", summary.Mode)
	fmt.Fprintf(cmd.OutOrStdout(), "Next step: %s\n", summary.NextRequiredStep)
	return nil
}
