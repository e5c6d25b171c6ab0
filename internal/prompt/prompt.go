// Package prompt renders per-row prompts from {{field}} templates.
package prompt

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Render substitutes every {{key}} whose key is present in fields.
// Unknown placeholders are kept literally and substituted values are never re-scanned.
func Render(template string, fields map[string]string) string {
	if template == "" || len(fields) == 0 {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		if strings.HasPrefix(template[i:], openDelim) {
			rest := template[i+len(openDelim):]
			if end := strings.Index(rest, closeDelim); end >= 0 {
				if value, ok := fields[rest[:end]]; ok {
					b.WriteString(value)
					i += len(openDelim) + end + len(closeDelim)
					continue
				}
			}
		}
		// Advance one byte so "{{{name}}}" still matches the inner placeholder.
		b.WriteByte(template[i])
		i++
	}
	return b.String()
}

// Placeholders lists the distinct placeholder names in order of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(template); {
		start := strings.Index(template[i:], openDelim)
		if start < 0 {
			break
		}
		start += i + len(openDelim)
		end := strings.Index(template[start:], closeDelim)
		if end < 0 {
			break
		}
		name := template[start : start+end]
		if name != "" && !strings.Contains(name, openDelim) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i = start + end + len(closeDelim)
	}
	return names
}

// Missing returns the placeholders that have no matching column.
func Missing(template string, columns []string) []string {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	var missing []string
	for _, name := range Placeholders(template) {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// DefaultTemplate builds the starter template seeded right after an upload.
func DefaultTemplate(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		placeholders[i] = openDelim + c + closeDelim
	}
	return "Create a video about " + strings.Join(placeholders, ", ")
}
