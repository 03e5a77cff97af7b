package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/campus/internal/quizclient"
)

var (
	courseID     string
	examID       string
	outputFormat string
)

var errMissingUser = errors.New("a user ID is required: pass --user or set CAMPUS_USER_ID")

// examCmd groups the exam subcommands.
var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Browse and take course exams",
	Long: `Browse and take the timed exams of a course.

Examples:
  campus-cli exam list --course cs101 --user s1
  campus-cli exam show --course cs101 --exam midterm --user s1
  campus-cli exam take --course cs101 --exam midterm --user s1`,
}

func newClient() (*quizclient.Client, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	return quizclient.New(apiURL, courseID), nil
}

func init() {
	examCmd.PersistentFlags().StringVar(&courseID, "course", "", "course ID")
	_ = examCmd.MarkPersistentFlagRequired("course")

	rootCmd.AddCommand(examCmd)
}

var now = time.Now
