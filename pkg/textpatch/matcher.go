package textpatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// regexp2MatchTimeout bounds backtracking on pathological expressions.
const regexp2MatchTimeout = 5 * time.Second

// span is a half-open byte range; start is -1 for groups that did not participate.
type span struct {
	start int
	end   int
}

type match struct {
	start  int
	end    int
	groups []span
	names  map[string]int
}

// matcher locates every non-overlapping region of a buffer in document order.
type matcher interface {
	find(buffer string) ([]match, error)
}

func compilePattern(p Pattern) (matcher, error) {
	switch p.Kind {
	case KindLiteral, "":
		if p.Text == "" {
			return nil, fmt.Errorf("literal pattern is empty")
		}
		return literalMatcher{needle: p.Text}, nil
	case KindRegex:
		if p.Text == "" {
			return nil, fmt.Errorf("regex pattern is empty")
		}
		switch p.Engine {
		case EngineRegexp2, "":
			return newRegexp2Matcher(p)
		case EngineRE2:
			return newRE2Matcher(p)
		default:
			return nil, fmt.Errorf("unknown regex engine %q", p.Engine)
		}
	case KindBlock:
		if p.Open == "" {
			return nil, fmt.Errorf("block pattern has no opening token")
		}
		open, closing := p.OpenDelim, p.CloseDelim
		if open == 0 {
			open = '{'
		}
		if closing == 0 {
			closing = '}'
		}
		if open == closing {
			return nil, fmt.Errorf("block delimiters must differ, got %q twice", open)
		}
		return blockMatcher{open: p.Open, openDelim: open, closeDelim: closing}, nil
	default:
		return nil, fmt.Errorf("unknown pattern kind %q", p.Kind)
	}
}

type literalMatcher struct {
	needle string
}

func (l literalMatcher) find(buffer string) ([]match, error) {
	var matches []match
	offset := 0
	for offset <= len(buffer) {
		idx := strings.Index(buffer[offset:], l.needle)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(l.needle)
		matches = append(matches, match{start: start, end: end, groups: []span{{start, end}}})
		offset = end
	}
	return matches, nil
}

type re2Matcher struct {
	re    *regexp.Regexp
	names map[string]int
}

func newRE2Matcher(p Pattern) (matcher, error) {
	flags := ""
	if p.DotAll {
		flags += "s"
	}
	if p.Multiline {
		flags += "m"
	}
	expr := p.Text
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	names := make(map[string]int)
	for i, name := range re.SubexpNames() {
		if name != "" {
			names[name] = i
		}
	}
	return re2Matcher{re: re, names: names}, nil
}

func (m re2Matcher) find(buffer string) ([]match, error) {
	all := m.re.FindAllStringSubmatchIndex(buffer, -1)
	matches := make([]match, 0, len(all))
	for _, loc := range all {
		groups := make([]span, len(loc)/2)
		for i := range groups {
			groups[i] = span{loc[2*i], loc[2*i+1]}
		}
		matches = append(matches, match{start: loc[0], end: loc[1], groups: groups, names: m.names})
	}
	return matches, nil
}

type regexp2Matcher struct {
	re *regexp2.Regexp
}

func newRegexp2Matcher(p Pattern) (matcher, error) {
	opts := regexp2.None
	if p.DotAll {
		opts |= regexp2.Singleline
	}
	if p.Multiline {
		opts |= regexp2.Multiline
	}
	re, err := regexp2.Compile(p.Text, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = regexp2MatchTimeout
	return regexp2Matcher{re: re}, nil
}

// find converts regexp2's rune offsets into byte offsets of buffer.
func (m regexp2Matcher) find(buffer string) ([]match, error) {
	current, err := m.re.FindStringMatch(buffer)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	offsets := runeByteOffsets(buffer)
	var matches []match
	for current != nil {
		groups := current.Groups()
		spans := make([]span, len(groups))
		names := make(map[string]int, len(groups))
		for i, group := range groups {
			if _, numeric := strconv.Atoi(group.Name); numeric != nil {
				names[group.Name] = i
			}
			if len(group.Captures) == 0 {
				spans[i] = span{-1, -1}
				continue
			}
			spans[i] = span{offsets[group.Index], offsets[group.Index+group.Length]}
		}
		matches = append(matches, match{
			start:  offsets[current.Index],
			end:    offsets[current.Index+current.Length],
			groups: spans,
			names:  names,
		})
		current, err = m.re.FindNextMatch(current)
		if err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// runeByteOffsets maps every rune index of s (plus the end position) to its byte offset.
func runeByteOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

type blockMatcher struct {
	open       string
	openDelim  byte
	closeDelim byte
}

// find returns every occurrence of the opening token extended to the closing delimiter
// that brings the delimiter depth back to zero. Occurrences that never close are misses.
func (b blockMatcher) find(buffer string) ([]match, error) {
	var matches []match
	offset := 0
	for offset < len(buffer) {
		idx := strings.Index(buffer[offset:], b.open)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := b.extent(buffer, start)
		if end < 0 {
			offset = start + 1
			continue
		}
		matches = append(matches, match{start: start, end: end, groups: []span{{start, end}}})
		offset = end
	}
	return matches, nil
}

func (b blockMatcher) extent(buffer string, start int) int {
	depth := 0
	opened := false
	end := -1
	walkCode(buffer, start, func(i int, c byte) bool {
		switch c {
		case b.openDelim:
			depth++
			opened = true
		case b.closeDelim:
			if !opened {
				return true
			}
			depth--
			if depth == 0 {
				end = i + 1
				return false
			}
		}
		return true
	})
	return end
}
