// Package summary derives vote counts and renders them for display and for
// the durable summary record. Results are recomputed on demand and never
// stored independently of the poll they derive from.
package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/votepoll/bot/internal/models"
)

const (
	titlePrefix   = "Poll: "
	titleMaxRunes = 60

	// ClosedAnnotation is appended to the chat entry and the summary body
	// once the poll is closed.
	ClosedAnnotation = "*The poll is closed.*"
)

type OptionResult struct {
	Key     string
	Label   string
	Count   int
	Percent int
}

type Result struct {
	Question string
	Options  []OptionResult
	Total    int
	Closed   bool
}

// Derive computes per-option counts and percentages plus the grand total.
// Percentage is round(100*count/total), 0 when the total is 0; rounded
// percentages may not sum to exactly 100.
func Derive(poll models.Poll) Result {
	res := Result{
		Question: poll.Question,
		Options:  make([]OptionResult, len(poll.Options)),
		Closed:   poll.Closed,
	}
	for _, opt := range poll.Options {
		res.Total += len(opt.Votes)
	}
	for i, opt := range poll.Options {
		count := len(opt.Votes)
		res.Options[i] = OptionResult{
			Key:     opt.Key,
			Label:   opt.Label,
			Count:   count,
			Percent: percent(count, res.Total),
		}
	}
	return res
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}

// Title builds the durable record title, truncating long questions.
func Title(question string) string {
	runes := []rune(question)
	if len(runes) > titleMaxRunes {
		return titlePrefix + string(runes[:titleMaxRunes]) + "…"
	}
	return titlePrefix + question
}

// Line renders one option result, e.g. "tacos: 2 votes (67%)".
func Line(opt OptionResult) string {
	unit := "votes"
	if opt.Count == 1 {
		unit = "vote"
	}
	return fmt.Sprintf("%s: %d %s (%d%%)", opt.Label, opt.Count, unit, opt.Percent)
}

// Body renders the durable record body: heading, question, one line per
// option, the total and, for a closed poll, the closed annotation.
func Body(res Result) string {
	var b strings.Builder
	b.WriteString("#### Poll results\n")
	b.WriteString(fmt.Sprintf("**%s**\n\n", res.Question))
	for _, opt := range res.Options {
		b.WriteString("- " + Line(opt) + "\n")
	}
	b.WriteString(fmt.Sprintf("\nTotal votes: %d\n", res.Total))
	if res.Closed {
		b.WriteString("\n" + ClosedAnnotation + "\n")
	}
	return b.String()
}
