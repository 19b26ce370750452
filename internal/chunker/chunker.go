package chunker

import (
	"strings"
)

// Piece is one passage produced by splitting a document.
type Piece struct {
	Text          string
	ContainsTable bool
}

// Chunker splits raw text into overlapping, boundary-aware passages.
// Splitting prefers the highest-priority separator that keeps segments
// within chunkSize: paragraph, then line, then sentence, then word.
type Chunker struct {
	chunkSize int
	overlap   int
}

var separators = []string{"\n\n", "\n", ". ", " "}

func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 8
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split chunks the input. Empty input yields no pieces; input within
// chunkSize yields exactly one piece with no overlap prefix.
func (c *Chunker) Split(input string) []Piece {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var pieces []Piece
	for _, seg := range detectSegments(input) {
		if seg.isTable {
			for _, part := range c.splitTable(seg.text) {
				pieces = append(pieces, Piece{Text: part, ContainsTable: true})
			}
			continue
		}
		for _, part := range c.splitText(seg.text) {
			if strings.TrimSpace(part) == "" {
				continue
			}
			pieces = append(pieces, Piece{Text: part})
		}
	}
	return c.applyOverlap(pieces)
}

// applyOverlap prefixes each text piece with the tail of the previous text
// piece. Table pieces carry their own replicated header instead.
func (c *Chunker) applyOverlap(pieces []Piece) []Piece {
	if c.overlap <= 0 {
		return pieces
	}
	out := make([]Piece, 0, len(pieces))
	for i, p := range pieces {
		if i > 0 && !p.ContainsTable && !pieces[i-1].ContainsTable {
			p.Text = tailRunes(pieces[i-1].Text, c.overlap) + p.Text
		}
		out = append(out, p)
	}
	return out
}

func (c *Chunker) splitText(s string) []string {
	return c.recursiveSplit(s, separators)
}

func (c *Chunker) recursiveSplit(s string, seps []string) []string {
	if runeLen(s) <= c.chunkSize {
		return []string{s}
	}
	if len(seps) == 0 {
		return c.hardSplit(s)
	}
	parts := strings.SplitAfter(s, seps[0])
	if len(parts) == 1 {
		return c.recursiveSplit(s, seps[1:])
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen == 0 {
			return
		}
		out = append(out, cur.String())
		cur.Reset()
		curLen = 0
	}
	for _, part := range parts {
		pl := runeLen(part)
		if pl > c.chunkSize {
			flush()
			out = append(out, c.recursiveSplit(part, seps[1:])...)
			continue
		}
		if curLen > 0 && curLen+pl > c.chunkSize {
			flush()
		}
		cur.WriteString(part)
		curLen += pl
	}
	flush()
	return out
}

func (c *Chunker) hardSplit(s string) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > c.chunkSize {
		out = append(out, string(runes[:c.chunkSize]))
		runes = runes[c.chunkSize:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// splitTable breaks a table at row boundaries only. Every resulting part
// repeats the header row and its delimiter so each part stays readable.
func (c *Chunker) splitTable(table string) []string {
	trimmed := strings.TrimRight(table, "\n")
	if runeLen(trimmed) <= c.chunkSize {
		return []string{trimmed}
	}
	lines := strings.Split(trimmed, "\n")
	var header []string
	rows := lines
	if len(lines) >= 2 && isDelimiterRow(lines[1]) {
		header = lines[:2]
		rows = lines[2:]
	}
	headerText := strings.Join(header, "\n")
	headerLen := runeLen(headerText)

	var out []string
	cur := append([]string{}, header...)
	curLen := headerLen
	for _, row := range rows {
		rl := runeLen(row) + 1
		if curLen+rl > c.chunkSize && len(cur) > len(header) {
			out = append(out, strings.Join(cur, "\n"))
			cur = append([]string{}, header...)
			curLen = headerLen
		}
		cur = append(cur, row)
		curLen += rl
	}
	if len(cur) > len(header) {
		out = append(out, strings.Join(cur, "\n"))
	}
	return out
}

func isDelimiterRow(line string) bool {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "|") && !strings.Contains(s, "-") {
		return false
	}
	seen := false
	for _, r := range s {
		switch r {
		case '|', ':', ' ':
		case '-':
			seen = true
		default:
			return false
		}
	}
	return seen
}

func runeLen(s string) int {
	return len([]rune(s))
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
