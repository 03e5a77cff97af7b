package exam

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nfrund/campus/internal/domain"
)

var titleCaser = cases.Title(language.English)

// Title formats an exam or state name for display.
func Title(s string) string {
	return titleCaser.String(s)
}

// FormatRemaining renders a countdown as mm:ss, or h:mm:ss past an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Availability describes whether a student can start the exam at now.
func Availability(v *domain.ExamView, now time.Time) string {
	switch {
	case v.AlreadyTaken && v.PriorResult != nil:
		return fmt.Sprintf("taken, scored %d/%d", v.PriorResult.Marks, v.PriorResult.TotalMarks)
	case v.AlreadyTaken:
		return "taken"
	case !v.IsPublished:
		return "opens in " + formatWait(v.PublishAt.Sub(now))
	default:
		return "open"
	}
}

func formatWait(d time.Duration) string {
	if d <= 0 {
		return "a moment"
	}
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Truncate(time.Minute).String()
}

// DisplayExamsTable writes one row per exam.
func DisplayExamsTable(out io.Writer, views []domain.ExamView, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "EXAM\tNAME\tDURATION\tMARKS\tSTATUS")
	fmt.Fprintln(w, "----\t----\t--------\t-----\t------")

	if len(views) == 0 {
		fmt.Fprintln(w, "No exams found")
		return
	}
	for i := range views {
		v := &views[i]
		fmt.Fprintf(w, "%s\t%s\t%dm\t%d\t%s\n",
			v.ExamID, Title(v.ExamName), v.DurationMinutes, v.TotalMarks, Availability(v, now))
	}
}

// DisplayExam writes the details of a single exam.
func DisplayExam(out io.Writer, v *domain.ExamView, now time.Time) {
	fmt.Fprintf(out, "%s (%s)\n", Title(v.ExamName), v.ExamID)
	fmt.Fprintf(out, "  Duration:  %d minutes\n", v.DurationMinutes)
	fmt.Fprintf(out, "  Marks:     %d\n", v.TotalMarks)
	fmt.Fprintf(out, "  Status:    %s\n", Availability(v, now))
	if v.PriorResult != nil && v.PriorResult.Remarks != "" {
		fmt.Fprintf(out, "  Remarks:   %s\n", v.PriorResult.Remarks)
	}
	if v.Guidelines != "" {
		fmt.Fprintf(out, "\n%s\n", v.Guidelines)
	}
}

// DisplayJSON writes v as indented JSON.
func DisplayJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
