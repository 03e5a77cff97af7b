package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/campus/cmd/campus-cli/internal/exam"
)

var examListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the exams of a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		views, err := client.ListExams(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return exam.DisplayJSON(cmd.OutOrStdout(), views)
		}
		exam.DisplayExamsTable(cmd.OutOrStdout(), views, now())
		return nil
	},
}

func init() {
	examListCmd.Flags().StringVar(&outputFormat, "format", "table", "output format (table, json)")
	examCmd.AddCommand(examListCmd)
}
