// Package export renders adventure transcripts for download.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ai_dungeon_master/session"
)

// TranscriptPDF writes the transcript as an A4 PDF document.
func TranscriptPDF(w io.Writer, characterName string, entries []session.HistoryEntry, at time.Time) error {
	title := "The Adventure"
	if name := strings.TrimSpace(characterName); name != "" {
		title = fmt.Sprintf("The Adventure of %s", name)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("AI Dungeon Master", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Times", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 12, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "I", 10)
	pdf.CellFormat(0, 6, at.Format("2 January 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if len(entries) == 0 {
		pdf.SetFont("Times", "", 12)
		pdf.MultiCell(0, 6, "The story has not begun yet.", "", "L", false)
	}
	for _, e := range entries {
		speaker, style := speakerFor(e.Kind)
		pdf.SetFont("Times", "B", 11)
		pdf.CellFormat(0, 6, speaker, "", 1, "L", false, 0, "")
		pdf.SetFont("Times", style, 12)
		pdf.MultiCell(0, 6, tr(e.Text), "", "L", false)
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render transcript pdf: %w", err)
	}
	return nil
}

func speakerFor(kind session.Kind) (string, string) {
	switch kind {
	case session.KindDungeonMaster:
		return "Dungeon Master", ""
	case session.KindPlayer:
		return "You", "I"
	case session.KindOffline:
		return "Outcome", ""
	}
	return "", ""
}
