// Package templates renders stored message templates with {{variable}} placeholders.
package templates

import (
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Variables maps placeholder names to values.
type Variables map[string]string

// Merge returns a copy of v overlaid with other; other wins on conflicts.
func (v Variables) Merge(other map[string]string) Variables {
	out := make(Variables, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// Render substitutes every {{name}} in tmpl. Whitespace inside the braces is
// ignored. Placeholders without a value are left in place so a missing
// variable stays visible in previews instead of silently disappearing.
func Render(tmpl string, vars Variables) string {
	return render(tmpl, vars, nil)
}

// RenderHTML is Render for HTML bodies: values are escaped, the template
// markup itself is kept as written.
func RenderHTML(tmpl string, vars Variables) string {
	return render(tmpl, vars, html.EscapeString)
}

func render(tmpl string, vars Variables, escape func(string) string) string {
	if !strings.Contains(tmpl, startTag) {
		return tmpl
	}
	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		val, ok := vars[strings.TrimSpace(tag)]
		if !ok {
			return w.Write([]byte(startTag + tag + endTag))
		}
		if escape != nil {
			val = escape(val)
		}
		return w.Write([]byte(val))
	})
	if err != nil {
		// unbalanced braces
		return tmpl
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Placeholders lists the distinct placeholder names used in tmpl in order of
// first appearance.
func Placeholders(tmpl string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Missing returns the placeholders of tmpl that vars has no value for.
func Missing(tmpl string, vars Variables) []string {
	var out []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := vars[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
