package chunker

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	tast "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"
)

type segment struct {
	text    string
	isTable bool
}

// detectSegments splits the source into alternating text and table regions.
// Tables are located through the goldmark GFM table extension so that the
// splitter can treat them atomically at row granularity.
func detectSegments(source string) []segment {
	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(gtext.NewReader(src))

	type span struct{ start, stop int }
	var tables []span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() != tast.KindTable {
			return ast.WalkContinue, nil
		}
		start, stop, ok := nodeByteRange(n, src)
		if ok {
			tables = append(tables, span{start: expandToLineStart(src, start), stop: expandToLineEnd(src, stop)})
		}
		return ast.WalkSkipChildren, nil
	})
	if len(tables) == 0 {
		return []segment{{text: source}}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].start < tables[j].start })

	var segments []segment
	pos := 0
	for _, t := range tables {
		if t.start < pos {
			continue
		}
		if t.start > pos {
			segments = append(segments, segment{text: string(src[pos:t.start])})
		}
		segments = append(segments, segment{text: strings.TrimRight(string(src[t.start:t.stop]), "\n"), isTable: true})
		pos = t.stop
	}
	if pos < len(src) {
		segments = append(segments, segment{text: string(src[pos:])})
	}
	return segments
}

// nodeByteRange finds the source extent of a node by walking its text leaves.
func nodeByteRange(n ast.Node, src []byte) (int, int, bool) {
	start, stop := len(src), 0
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			if t.Segment.Start < start {
				start = t.Segment.Start
			}
			if t.Segment.Stop > stop {
				stop = t.Segment.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	if stop <= start {
		return 0, 0, false
	}
	return start, stop, true
}

func expandToLineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

func expandToLineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	if pos < len(src) {
		pos++
	}
	return pos
}
