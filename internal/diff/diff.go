// Package diff compares article contents: it previews pending edits, counts changed lines and merges
// concurrent edits of the same text.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp *diffmatchpatch.DiffMatchPatch

func init() {
	dmp = diffmatchpatch.New()
}

type Op int

const (
	Equal Op = iota
	Added
	Removed
)

// Line is one line of a line-by-line comparison, without its line break.
type Line struct {
	Op   Op
	Text string
}

type Stats struct {
	Added   int
	Removed int
}

// FindPatches returns the patch that turns text1 into text2, in the textual patch format.
func FindPatches(text1, text2 string) string {
	diffs := dmp.DiffMain(text1, text2, false)
	return dmp.PatchToText(dmp.PatchMake(text1, diffs))
}

// Lines compares two texts line by line.
func Lines(before, after string) []Line {
	var lines []Line
	for _, d := range lineDiffs(before, after) {
		op := Equal
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = Added
		case diffmatchpatch.DiffDelete:
			op = Removed
		}
		for _, text := range splitLines(d.Text) {
			lines = append(lines, Line{Op: op, Text: text})
		}
	}
	return lines
}

// LineStats counts the lines added and removed between two texts.
func LineStats(before, after string) (s Stats) {
	for _, l := range Lines(before, after) {
		switch l.Op {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		}
	}
	return
}

// PrettyHTML renders a character level comparison as HTML, insertions in <ins> and deletions in <del>.
func PrettyHTML(before, after string) string {
	diffs := dmp.DiffMain(before, after, false)
	return dmp.DiffPrettyHtml(dmp.DiffCleanupSemantic(diffs))
}

// Merge applies the changes that took base to theirs onto ours. ok is false if some change could not be
// placed, in which case merged holds only the changes that could.
func Merge(base, ours, theirs string) (merged string, ok bool) {
	patches := dmp.PatchMake(base, theirs)
	merged, applied := dmp.PatchApply(patches, ours)
	for _, a := range applied {
		if !a {
			return merged, false
		}
	}
	return merged, true
}

func lineDiffs(before, after string) []diffmatchpatch.Diff {
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
