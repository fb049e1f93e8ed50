package textpatch

import (
	"strconv"
	"strings"
)

// expandTemplate substitutes capture group references in template with text from buffer.
// Supported forms are $1, ${1}, ${name} and $$. References to groups that do not exist
// are left verbatim so that code such as `${value}` survives expansion.
func expandTemplate(template, buffer string, m match) string {
	if !strings.Contains(template, "$") {
		return template
	}
	var out strings.Builder
	out.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			out.WriteByte(c)
			continue
		}
		next := template[i+1]
		switch {
		case next == '$':
			out.WriteByte('$')
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(template) && template[j] >= '0' && template[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(template[i+1 : j])
			if text, ok := groupText(buffer, m, n); ok {
				out.WriteString(text)
			} else {
				out.WriteString(template[i:j])
			}
			i = j - 1
		case next == '{':
			closing := strings.IndexByte(template[i+2:], '}')
			if closing < 0 {
				out.WriteByte(c)
				continue
			}
			ref := template[i+2 : i+2+closing]
			end := i + 2 + closing
			if text, ok := namedGroupText(buffer, m, ref); ok {
				out.WriteString(text)
			} else {
				out.WriteString(template[i : end+1])
			}
			i = end
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func groupText(buffer string, m match, n int) (string, bool) {
	if n < 0 || n >= len(m.groups) {
		return "", false
	}
	g := m.groups[n]
	if g.start < 0 {
		return "", true
	}
	return buffer[g.start:g.end], true
}

func namedGroupText(buffer string, m match, ref string) (string, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		return groupText(buffer, m, n)
	}
	n, ok := m.names[ref]
	if !ok {
		return "", false
	}
	return groupText(buffer, m, n)
}
