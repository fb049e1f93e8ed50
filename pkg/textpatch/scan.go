package textpatch

import (
	"fmt"
	"strings"
)

// walkCode calls visit for every byte of src at or after start that sits outside string
// literals ('…', "…", `…`) and comments (// …, /* … */). Single and double quoted
// strings end at an unescaped newline. Walking stops when visit returns false.
//
// Regular expression literals are not recognised; a quote inside one opens a string.
func walkCode(src string, start int, visit func(i int, c byte) bool) {
	for i := start; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			next := strings.IndexByte(src[i:], '\n')
			if next < 0 {
				return
			}
			i += next
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			next := strings.Index(src[i+2:], "*/")
			if next < 0 {
				return
			}
			i += next + 3
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(src, i)
		default:
			if !visit(i, c) {
				return
			}
		}
	}
}

// skipQuoted returns the index of the byte closing the string opened at src[open].
func skipQuoted(src string, open int) int {
	quote := src[open]
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i
		case '\n':
			if quote != '`' {
				return i
			}
		}
	}
	return len(src)
}

var delimiterPairs = [...][2]byte{{'(', ')'}, {'[', ']'}, {'{', '}'}}

// delimiterDelta counts opening minus closing delimiters per pair, outside strings and
// comments.
func delimiterDelta(text string) [len(delimiterPairs)]int {
	var delta [len(delimiterPairs)]int
	walkCode(text, 0, func(_ int, c byte) bool {
		for i, pair := range delimiterPairs {
			switch c {
			case pair[0]:
				delta[i]++
			case pair[1]:
				delta[i]--
			}
		}
		return true
	})
	return delta
}

// checkBalance reports an error when replacing region with replacement would change the
// buffer's delimiter balance.
func checkBalance(region, replacement string) error {
	before := delimiterDelta(region)
	after := delimiterDelta(replacement)
	var problems []string
	for i, pair := range delimiterPairs {
		if before[i] == after[i] {
			continue
		}
		problems = append(problems, fmt.Sprintf("%c%c %+d -> %+d", pair[0], pair[1], before[i], after[i]))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("delimiter balance changes (%s)", strings.Join(problems, ", "))
}
