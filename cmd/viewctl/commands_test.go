package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logishift/viewrank/internal/api/objects"
)

func samplePopular() []objects.PopularPost {
	return []objects.PopularPost{
		{Post: objects.Post{ID: 10, Title: objects.Rendered{Rendered: "Ten"}, Link: "https://example.com/ten/"}, Views: 8},
		{Post: objects.Post{ID: 20, Title: objects.Rendered{Rendered: "Twenty"}, Link: "https://example.com/twenty/"}, Views: 1},
	}
}

func TestPrintPopular_Table(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, printPopular(&buf, "table", samplePopular()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"RANK", "ID", "VIEWS", "TITLE", "LINK"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "10", "8", "Ten", "https://example.com/ten/"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "20", "1", "Twenty", "https://example.com/twenty/"}, strings.Fields(lines[2]))
}

func TestPrintPopular_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPopular(&buf, "table", nil))
	assert.Contains(t, buf.String(), "no views recorded")
}

func TestPrintPopular_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPopular(&buf, "json", samplePopular()))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, float64(10), got[0]["id"])
	assert.Equal(t, float64(8), got[0]["views"])
}

func TestRecordCmd_RejectsBadID(t *testing.T) {
	rootCmd.SetArgs([]string{"record", "abc"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid post id")
}
