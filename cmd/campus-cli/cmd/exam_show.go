package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/campus/cmd/campus-cli/internal/exam"
)

var examShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether an exam can be taken",
	Long: `Show an exam's duration and marks, and whether it can be started now:
the time left before it opens, or the earlier result if it was already taken.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		view, err := client.GetExam(cmd.Context(), examID, userID)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			view.Questions = nil
			return exam.DisplayJSON(cmd.OutOrStdout(), view)
		}
		exam.DisplayExam(cmd.OutOrStdout(), view, now())
		return nil
	},
}

func init() {
	examShowCmd.Flags().StringVar(&examID, "exam", "", "exam ID")
	examShowCmd.Flags().StringVar(&outputFormat, "format", "table", "output format (table, json)")
	_ = examShowCmd.MarkFlagRequired("exam")
	examCmd.AddCommand(examShowCmd)
}
