package analyzer

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sitelens/sitelens/internal/aggregator"
)

// PrintSummary prints a formatted crawl summary to stdout, adapted from the
// teacher's tabwriter-based report to the aggregator's IssueGroups/
// StatusCodeBreakdown/SlowPages shape.
func PrintSummary(summary aggregator.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(os.Stdout, "\n")
	fmt.Fprintf(os.Stdout, "===============================================================\n")
	fmt.Fprintf(os.Stdout, "                    SEO Analysis Summary                       \n")
	fmt.Fprintf(os.Stdout, "===============================================================\n")
	fmt.Fprintf(os.Stdout, "\n")

	fmt.Fprintf(w, "Total Pages Crawled:\t%d\n", summary.TotalPages)
	fmt.Fprintf(w, "Average Score:\t%.1f\n", summary.AvgScore)
	fmt.Fprintf(w, "Average Response Time:\t%.1f ms\n", summary.AvgResponseTimeMS)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(os.Stdout, "Issues by Severity:\n")
	fmt.Fprintf(w, "  Critical:\t%d\n", summary.CriticalIssues)
	fmt.Fprintf(w, "  Warnings:\t%d\n", summary.Warnings)
	fmt.Fprintf(w, "  Info:\t%d\n", summary.InfoIssues)
	fmt.Fprintf(w, "\n")

	if len(summary.StatusCodeBreakdown) > 0 {
		fmt.Fprintf(os.Stdout, "Status Code Breakdown:\n")
		for _, group := range summary.StatusCodeBreakdown {
			fmt.Fprintf(w, "  %d:\t%d\n", group.StatusCode, group.Count)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(summary.IssueGroups) > 0 {
		fmt.Fprintf(os.Stdout, "Issues by Type:\n")
		limit := len(summary.IssueGroups)
		if limit > 10 {
			limit = 10
		}
		for _, group := range summary.IssueGroups[:limit] {
			fmt.Fprintf(w, "  %s %s:\t%d\n", severityIcon(group.Severity), group.Category, group.Count)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(summary.SlowPages) > 0 {
		fmt.Fprintf(os.Stdout, "Slow Pages (>3s):\n")
		limit := len(summary.SlowPages)
		if limit > 5 {
			limit = 5
		}
		for _, page := range summary.SlowPages[:limit] {
			fmt.Fprintf(w, "  %s\t%d ms\n", page.URL, page.ResponseTime)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(os.Stdout, "===============================================================\n")
}

func severityIcon(severity string) string {
	switch severity {
	case "critical":
		return "[critical]"
	case "warning":
		return "[warning]"
	default:
		return "[info]"
	}
}
