package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	c := New(100, 10)
	require.Nil(t, c.Split(""))
	require.Nil(t, c.Split("   \n\t  "))
}

func TestSplitShortInput(t *testing.T) {
	c := New(100, 10)
	pieces := c.Split("a short paragraph")
	require.Len(t, pieces, 1)
	require.Equal(t, "a short paragraph", pieces[0].Text)
	require.False(t, pieces[0].ContainsTable)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "paragraph %d has a handful of words in it.\n\n", i)
	}
	c := New(200, 20)
	pieces := c.Split(sb.String())
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		require.LessOrEqual(t, len([]rune(p.Text)), 200+20, "piece exceeds chunk size plus overlap")
	}
}

func TestSplitOverlapBound(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "sentence number %d is here to fill space.\n\n", i)
	}
	overlap := 25
	c := New(180, overlap)
	pieces := c.Split(sb.String())
	require.Greater(t, len(pieces), 2)
	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1].Text)
		cur := []rune(pieces[i].Text)
		require.GreaterOrEqual(t, len(prev), overlap)
		require.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]),
			"chunk %d does not start with the tail of chunk %d", i, i-1)
	}
}

func TestSplitKeepsSmallTableWhole(t *testing.T) {
	table := "| name | value |\n| --- | --- |\n| a | 1 |\n| b | 2 |"
	input := "intro paragraph\n\n" + table + "\n\nclosing paragraph"
	c := New(500, 20)
	pieces := c.Split(input)

	var tables []Piece
	for _, p := range pieces {
		if p.ContainsTable {
			tables = append(tables, p)
		}
	}
	require.Len(t, tables, 1)
	require.Equal(t, table, tables[0].Text)
}

func TestSplitOversizedTableReplicatesHeader(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("| id | description |\n| --- | --- |\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "| %d | row %d with some descriptive text padding |\n", i, i)
	}
	c := New(300, 20)
	pieces := c.Split(sb.String())
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		require.True(t, p.ContainsTable)
		lines := strings.Split(p.Text, "\n")
		require.GreaterOrEqual(t, len(lines), 3)
		require.Equal(t, "| id | description |", lines[0])
		require.True(t, isDelimiterRow(lines[1]))
		for _, line := range lines[2:] {
			require.True(t, strings.HasPrefix(line, "| "), "row split mid-boundary: %q", line)
			require.True(t, strings.HasSuffix(line, "|"), "row split mid-boundary: %q", line)
		}
	}
}

func TestIsDelimiterRow(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"| --- | --- |", true},
		{"|:---|---:|", true},
		{"| a | b |", false},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isDelimiterRow(tt.line); got != tt.want {
			t.Errorf("isDelimiterRow(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
