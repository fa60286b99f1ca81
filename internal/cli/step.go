package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/pkg/iteration"
	"github.com/inkwell-ai/inkwell/pkg/session"
)

var (
	stepPrompt      string
	stepTemperature float64
)

var validStepKinds = map[iteration.StepKind]bool{
	iteration.StepGenerate:   true,
	iteration.StepCritique:   true,
	iteration.StepReflection: true,
	iteration.StepQuestion:   true,
	iteration.StepRegenerate: true,
	iteration.StepApproval:   true,
}

var stepCmd = &cobra.Command{
	Use:   "step <session-id> <kind>",
	Short: "Advance a session by one step",
	Long: `Advance a session by one step. Kind is one of generate, critique,
reflection, question, regenerate, or approval. The session is loaded
from disk, advanced, and persisted back.`,
	Args: cobra.ExactArgs(2),
	RunE: runStep,
}

func init() {
	stepCmd.Flags().StringVar(&stepPrompt, "prompt", "", "prompt text for generation steps")
	stepCmd.Flags().Float64Var(&stepTemperature, "temperature", 0, "sampling temperature override")
	rootCmd.AddCommand(stepCmd)
}

func runStep(cmd *cobra.Command, args []string) error {
	kind := iteration.StepKind(args[1])
	if !validStepKinds[kind] {
		return fmt.Errorf("unknown step kind %q", args[1])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.restore(args[0]); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	payload := map[string]interface{}{}
	if stepPrompt != "" {
		payload["prompt"] = stepPrompt
	}
	if stepTemperature > 0 {
		payload["temperature"] = stepTemperature
	}

	sess, err := a.orchestrator.ResumeSession(cmd.Context(), args[0], iteration.Step{
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	printSession(cmd, sess)

	if output, ok := sess.Outputs[kind]; ok {
		if output.Failed() {
			fmt.Fprintf(cmd.OutOrStdout(), "Step failed: [%s] %s\n", output.ErrorCode, output.ErrorMessage)
		} else if output.Content != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", output.Content)
		}
	}
	return nil
}

func printSession(cmd *cobra.Command, sess *session.Session) {
	fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", sess.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", sess.State.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Cycle: %d\n", sess.State.Cycle)
	fmt.Fprintf(cmd.OutOrStdout(), "Next step: %s\n", sess.State.NextRequiredStep)
	if sess.State.CanApprove {
		fmt.Fprintln(cmd.OutOrStdout(), "Approval unlocked")
	}
}
