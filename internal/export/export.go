// Package export renders processing results as plain text, for file
// export and per-section clipboard copies. Rendering never alters,
// truncates or reorders the content it is given.
package export

import (
	"fmt"
	"strings"

	"app/internal/model"
)

const (
	noKeyPointsLine   = "Tidak ada poin penting yang terdeteksi."
	noActionItemsLine = "Tidak ada action items yang terdeteksi."
)

// Result is the rendered view of a processed recording. Summary may be
// zero-valued for partial results that only carry a transcript.
type Result struct {
	Filename        string
	DurationMinutes float64
	Transcript      string
	Summary         model.Summary
}

// Render produces the full plain-text export.
func Render(r Result) string {
	var b strings.Builder
	b.WriteString("HASIL RINGKASAN MEETING\n")
	b.WriteString("=======================\n\n")
	fmt.Fprintf(&b, "File   : %s\n", r.Filename)
	fmt.Fprintf(&b, "Durasi : %.1f menit\n\n", r.DurationMinutes)

	b.WriteString("RINGKASAN\n---------\n")
	b.WriteString(r.Summary.RingkasanSingkat)
	b.WriteString("\n\n")

	b.WriteString("POIN PENTING\n------------\n")
	b.WriteString(KeyPointsText(r.Summary.PoinPenting))
	b.WriteString("\n\n")

	b.WriteString("ACTION ITEMS\n------------\n")
	b.WriteString(ActionItemsText(r.Summary.ActionItems))
	b.WriteString("\n\n")

	b.WriteString("TRANSKRIP\n---------\n")
	b.WriteString(r.Transcript)
	b.WriteString("\n")
	return b.String()
}

// SummaryText is the copy text for the short summary section.
func SummaryText(s model.Summary) string {
	return s.RingkasanSingkat
}

// KeyPointsText is the copy text for the key points section, numbered one
// per line.
func KeyPointsText(points []string) string {
	return numberedList(points, noKeyPointsLine)
}

// ActionItemsText is the copy text for the action items section, numbered
// one per line.
func ActionItemsText(items []string) string {
	return numberedList(items, noActionItemsLine)
}

// TranscriptText is the copy text for the transcript section.
func TranscriptText(transcript string) string {
	return transcript
}

func numberedList(items []string, emptyLine string) string {
	if len(items) == 0 {
		return emptyLine
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}
