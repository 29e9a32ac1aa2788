// Package factory turns the free text of a /vote command into an initial poll.
package factory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/votepoll/bot/internal/models"
)

var orDelimiter = regexp.MustCompile(`(?i)\s+or\s+`)

// Parse builds the initial poll from the command text with the trigger prefix
// already stripped. More than one segment around "or" yields a multi-option
// poll; a single segment yields a fixed Yes/No poll. An empty input is a
// validation error and the caller must not create a chat entry for it.
func Parse(raw string) (models.Poll, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return models.Poll{}, models.ErrEmptyCommand
	}

	var parts []string
	for _, part := range orDelimiter.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}

	var options []models.Option
	if len(parts) > 1 {
		options = make([]models.Option, len(parts))
		for i, label := range parts {
			options[i] = models.Option{
				Key:   fmt.Sprintf("opt%d", i),
				Label: label,
				Votes: []string{},
			}
		}
	} else {
		options = []models.Option{
			{Key: "yes", Label: "Yes", Votes: []string{}},
			{Key: "no", Label: "No", Votes: []string{}},
		}
	}

	return models.Poll{
		Question: text,
		Options:  options,
		Closed:   false,
	}, nil
}
