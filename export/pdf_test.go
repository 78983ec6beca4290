package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_dungeon_master/session"
)

func TestTranscriptPDF(t *testing.T) {
	entries := []session.HistoryEntry{
		{Kind: session.KindDungeonMaster, Text: "Fog rolls over Stillhollow.\n\nChoices:\n1. Enter\n2. Wait"},
		{Kind: session.KindPlayer, Text: "Enter"},
		{Kind: session.KindOffline, Text: "You step into the fog-wreathed square • quietly."},
	}

	var buf bytes.Buffer
	require.NoError(t, TranscriptPDF(&buf, "Aria", entries, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestTranscriptPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TranscriptPDF(&buf, "", nil, time.Now()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
