package helpers

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name   string  `header:"NAME"`
	Avg    float64 `header:"AVG_MS"`
	Hidden string  `header:"-"`
	Extra  string
}

func TestNewFormatter(t *testing.T) {
	for _, f := range ListFormats {
		_, err := NewFormatter(f)
		assert.NoError(t, err, f)
	}
	_, err := NewFormatter(FormatPretty)
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := []row{{Name: "on join", Avg: 12.345, Hidden: "x"}, {Name: "loop", Avg: 1}}

	require.NoError(t, (&TableFormatter{}).Format(data, &buf))
	assert.Equal(t, "NAME      AVG_MS\non join   12.35\nloop      1.00\n", buf.String())
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := []*row{{Name: "a, b", Avg: 2}}

	require.NoError(t, (&CSVFormatter{}).Format(data, &buf))
	assert.Equal(t, "NAME,AVG_MS\n\"a, b\",2.00\n", buf.String())
}

func TestFormatters_EmptyAndInvalid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format([]row{}, &buf))
	assert.Empty(t, buf.String())

	assert.Error(t, (&CSVFormatter{}).Format(row{}, &buf))
	assert.Error(t, (&TableFormatter{}).Format([]int{1}, &buf))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(map[string]int{"a": 1}, &buf))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", formatValue(time.Time{}))
	assert.Equal(t, "1m30s", formatValue(90*time.Second))
	assert.Equal(t, "3", formatValue(int64(3)))
}
