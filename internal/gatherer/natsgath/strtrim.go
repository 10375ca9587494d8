package natsgath

import "strings"

// trimToRect cuts s down to at most height lines of at most width bytes
// each, marking every cut with "[...]". Diagnostics leave the process at
// api.MaxDiagnosticHeight by api.MaxDiagnosticWidth so a runaway target
// cannot flood the subject.
func trimToRect(s string, height, width int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	clipped := len(lines) > height
	if clipped {
		lines = lines[:height]
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(line) > width {
			b.WriteString(line[:width])
			b.WriteString("[...]")
		} else {
			b.WriteString(line)
		}
	}
	if clipped {
		b.WriteString("\n[...]")
	}
	return b.String()
}
