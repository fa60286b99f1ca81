package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/pkg/session"
)

var (
	draftBackend  string
	draftPersona  string
	draftTemplate string
)

var draftCmd = &cobra.Command{
	Use:   "draft <outline-session-id>",
	Short: "Start a draft generation cycle from an approved outline",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraft,
}

func init() {
	draftCmd.Flags().StringVar(&draftBackend, "backend", "", "backend to use (anthropic, openai)")
	draftCmd.Flags().StringVar(&draftPersona, "persona", "", "persona id for prompt enrichment")
	draftCmd.Flags().StringVar(&draftTemplate, "template", "", "template id for prompt enrichment")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.orchestrator.StartDraftCycle(cmd.Context(), session.DraftCycleInput{
		OutlineID:  args[0],
		Backend:    draftBackend,
		PersonaID:  draftPersona,
		TemplateID: draftTemplate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", summary.SessionID)
	fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", summary.Mode)
	fmt.Fprintf(cmd.OutOrStdout(), "Next step: %s\n", summary.NextRequiredStep)
	return nil
}
