package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/skprof/internal/profiler/report"
)

func TestResolveTheme(t *testing.T) {
	var buf bytes.Buffer

	th, err := ResolveTheme("auto", &buf)
	require.NoError(t, err)
	assert.IsType(t, report.PlainTheme{}, th, "non-terminal output is plain")

	th, err = ResolveTheme("MARKERS", &buf)
	require.NoError(t, err)
	assert.IsType(t, report.MarkerTheme{}, th)

	th, err = ResolveTheme("ansi", &buf)
	require.NoError(t, err)
	assert.IsType(t, &report.ANSITheme{}, th)

	_, err = ResolveTheme("sepia", &buf)
	assert.Error(t, err)
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	assert.Equal(t, 80, TerminalWidth(&bytes.Buffer{}, 80))
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("pretty", ReportFormats))
	assert.ErrorContains(t, ValidateFormat("xml", ListFormats), "table, json, csv")
}
