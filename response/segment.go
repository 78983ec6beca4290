// Package response splits free-form text returned by a language model into
// the narrative shown to the player and the list of choices offered next.
package response

import (
	"fmt"
	"strings"
)

const (
	choicesMarker = "choices:"

	// enumerationCutset is trimmed from the left of every choice candidate.
	enumerationCutset = "0123456789.)-• \t"

	maxListedChoiceWords   = 20
	maxFallbackChoiceWords = 12
	fallbackWindow         = 6
	fallbackChoices        = 3
)

// Segment separates raw model output into narrative prose and an ordered
// list of choices. Three strategies are tried in order: an explicit
// "Choices:" line, an enumerated or bulleted list anywhere in the text, and
// finally the last few short lines of the text.
//
// The narrative never has leading or trailing blank lines. choices may be
// empty, in which case the caller should offer free-text input instead.
func Segment(raw string) (narrative string, choices []string) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	lines := splitLines(raw)

	if idx := markerIndex(lines); idx >= 0 {
		return segmentAfterMarker(lines, idx)
	}

	narrativeLines := make([]string, 0, len(lines))
	for _, ln := range lines {
		s := strings.TrimSpace(ln)
		if s == "" || !isListItem(s) {
			narrativeLines = append(narrativeLines, ln)
			continue
		}
		candidate := stripEnumeration(s)
		if candidate == "" || wordCount(candidate) > maxListedChoiceWords {
			narrativeLines = append(narrativeLines, ln)
			continue
		}
		choices = append(choices, candidate)
	}
	if len(choices) > 0 {
		return joinNarrative(narrativeLines), choices
	}

	return segmentTail(lines)
}

// FormatChoices renders choices as the numbered block appended to dungeon
// master turns. The result is recognised by Segment's marker strategy.
func FormatChoices(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Choices:")
	for i, c := range choices {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c)
	}
	return b.String()
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	// Trailing blank lines carry no content and would skew the tail window.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func markerIndex(lines []string) int {
	for i, ln := range lines {
		if isMarker(ln) {
			return i
		}
	}
	return -1
}

func isMarker(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), choicesMarker)
}

func segmentAfterMarker(lines []string, idx int) (string, []string) {
	var choices []string
	for _, ln := range lines[idx+1:] {
		if isMarker(ln) {
			continue
		}
		s := stripEnumeration(strings.TrimSpace(ln))
		if s == "" {
			continue
		}
		choices = append(choices, s)
	}
	return joinNarrative(lines[:idx]), choices
}

func segmentTail(lines []string) (string, []string) {
	start := len(lines) - fallbackWindow
	if start < 0 {
		start = 0
	}

	var candidates []string
	for _, ln := range lines[start:] {
		s := strings.TrimSpace(ln)
		if s == "" || wordCount(s) > maxFallbackChoiceWords {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) > fallbackChoices {
		candidates = candidates[len(candidates)-fallbackChoices:]
	}
	if len(candidates) == 0 {
		return joinNarrative(lines), nil
	}
	// Drops len(candidates) trailing lines, not the candidate lines: a long
	// final line is lost and an earlier candidate stays in the narrative.
	return joinNarrative(lines[:len(lines)-len(candidates)]), candidates
}

// isListItem reports whether s opens with "N." / "N)" or a dash or bullet.
func isListItem(s string) bool {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "•") {
		return true
	}
	return len(s) >= 2 && s[0] >= '0' && s[0] <= '9' && (s[1] == '.' || s[1] == ')')
}

func stripEnumeration(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, enumerationCutset))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func joinNarrative(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
