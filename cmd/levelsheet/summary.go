package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/FocuswithJustin/LevelSheet/internal/run"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	bucketStyle = lipgloss.NewStyle().Width(8)
	countStyle  = lipgloss.NewStyle().Width(8).Align(lipgloss.Right).PaddingRight(2)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// renderSummary formats the per-bucket table and the run totals printed
// after a build. files holds the emitted file name of each listing.
func renderSummary(rep *run.Report, files []string, dryRun bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(bucketStyle.Render("BUCKET")+countStyle.Render("CHARTS")+"FILE") + "\n")
	for i, l := range rep.Result.Listings {
		file := files[i]
		if dryRun {
			file = mutedStyle.Render("-")
		}
		b.WriteString(bucketStyle.Render(l.Bucket) + countStyle.Render(strconv.Itoa(len(l.Entries))) + file + "\n")
	}

	st := rep.Result.Stats
	missing := fmt.Sprintf("%d missing", st.PriorMiss)
	if st.PriorMiss > 0 {
		missing = warnStyle.Render(missing)
	}
	fmt.Fprintf(&b, "run %s: %d songs (%d deleted), %d charts, prior ratings %d found / %s\n",
		rep.RunID, st.Songs, st.Deleted, st.Charts, st.PriorHits, missing)
	if dryRun {
		b.WriteString(mutedStyle.Render("dry run: nothing written") + "\n")
	}
	return b.String()
}
