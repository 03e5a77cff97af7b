package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/campus/cmd/campus-cli/internal/exam"
	"github.com/nfrund/campus/internal/assessment"
)

var examTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take a timed exam in the terminal",
	Long: `Take a timed exam. The terminal switches to raw mode for the whole attempt.

Keys:
  1-9        jump to a question      [ ]   previous / next question
  a-h        choose an option        Backspace  clear the answer
  s          submit
  Esc        leave the exam; then r resumes or s submits

The countdown keeps running after leaving the exam. When it reaches zero the
recorded answers are submitted automatically. An exam can be submitted once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), interruptSignals...)
		defer stop()

		focus := exam.NewTerminalFocus(int(os.Stdin.Fd()))
		runner := exam.NewRunner(os.Stdin, cmd.OutOrStdout(), focus)

		session, err := assessment.Load(ctx, client, examID, userID, client, focus, runner.SessionOptions()...)
		if err != nil {
			if _, ok := assessment.IsUnavailable(err); ok {
				fmt.Fprintln(cmd.OutOrStdout(), exam.Describe(err))
				return nil
			}
			return err
		}

		outcome, err := runner.Run(ctx, session)
		if err != nil {
			if errors.Is(err, exam.ErrNotTerminal) {
				return fmt.Errorf("exams must be taken from an interactive terminal: %w", err)
			}
			return err
		}
		return outcome.Err
	},
}

// interruptSignals end a running exam with an "interrupted" submission. Ctrl-C
// only reaches the process as SIGINT once the terminal has left raw mode.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func init() {
	examTakeCmd.Flags().StringVar(&examID, "exam", "", "exam ID")
	_ = examTakeCmd.MarkFlagRequired("exam")
	examCmd.AddCommand(examTakeCmd)
}
