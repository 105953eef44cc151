package generator

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

var (
	defLine  = regexp.MustCompile(`^(\s*)def\s+\w+\s*\(`)
	listItem = regexp.MustCompile(`^(?:[-*•]\s*|\d+[.)]\s*)`)
)

// CleanCode strips markdown fences from a model reply and keeps everything from the first
// test function on, so imports and prose above it are dropped. ok is false when the reply
// has no test function.
func CleanCode(reply string) (code string, ok bool) {
	var kept []string
	inFunction := false
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if !inFunction && strings.HasPrefix(trimmed, "def test_") {
			inFunction = true
			// dedent the whole function to the column of its def
			line = trimmed
		}
		if inFunction {
			kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
		}
	}
	if !inFunction {
		return "", false
	}
	return dedentBody(kept), true
}

// dedentBody removes the indentation shared by the body lines when the def itself was indented.
func dedentBody(lines []string) string {
	if len(lines) < 2 {
		return strings.Join(lines, "\n")
	}
	minIndent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if minIndent == -1 || n < minIndent {
			minIndent = n
		}
	}
	if minIndent > 4 {
		shift := minIndent - 4
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= shift && strings.TrimSpace(lines[i][:shift]) == "" {
				lines[i] = lines[i][shift:]
			}
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// RenameFunction gives the first function in code the name name.
func RenameFunction(code, name string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if m := defLine.FindStringSubmatchIndex(l); m != nil {
			indent := l[m[2]:m[3]]
			lines[i] = indent + "def " + name + "(" + l[m[1]:]
			break
		}
	}
	return strings.Join(lines, "\n")
}

// ParseEdgeCases extracts edge case descriptions from a model reply:
// a JSON array when there is one, one entry per line otherwise. At most 5 are kept.
func ParseEdgeCases(reply string) []string {
	content := strings.TrimSpace(reply)
	if strings.Contains(content, "```") {
		start, end := strings.Index(content, "["), strings.LastIndex(content, "]")
		if start != -1 && end > start {
			content = content[start : end+1]
		} else {
			content = strings.TrimSpace(strings.ReplaceAll(content, "```", ""))
		}
	}

	var out []string
	var arr []any
	if strings.HasPrefix(content, "[") && strings.HasSuffix(content, "]") && json.Unmarshal([]byte(content), &arr) == nil {
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				continue
			}
			s = strings.Trim(strings.TrimSpace(s), `"'`)
			if usableEdgeCase(s) {
				out = append(out, s)
			}
		}
	} else {
		for _, line := range strings.Split(content, "\n") {
			s := strings.TrimSpace(line)
			s = listItem.ReplaceAllString(s, "")
			s = strings.TrimRight(strings.Trim(strings.TrimSpace(s), `"'`), ",")
			s = strings.Trim(s, `"'`)
			if strings.HasPrefix(s, "[") || strings.HasSuffix(s, "]") {
				continue
			}
			if usableEdgeCase(s) {
				out = append(out, s)
			}
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func usableEdgeCase(s string) bool {
	if len(s) <= 5 {
		return false
	}
	lower := strings.ToLower(s)
	for _, junk := range []string{"```", "json", "here are", "edge cases", "[", "]"} {
		if strings.Contains(lower, junk) {
			return false
		}
	}
	return true
}

// FallbackEdgeCases is the edge case list used when no model is available.
func FallbackEdgeCases(componentType string) []string {
	cases := []string{"Empty data handling", "Network timeout", "Invalid input"}
	switch componentType {
	case "button":
		cases = append(cases, "Disabled state", "Multiple rapid clicks", "Long press behavior")
	case "form":
		cases = append(cases, "Invalid email format", "Required field validation", "Maximum character limit")
	case "list":
		cases = append(cases, "Empty list state", "Large dataset performance", "Infinite scroll edge")
	case "image":
		cases = append(cases, "Missing image URL", "Slow loading images", "Invalid image format")
	case "video":
		cases = append(cases, "Video load failure", "Unsupported codec", "Network buffering")
	}
	return cases
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// PyIdent turns s into a valid python identifier fragment.
func PyIdent(s string) string {
	id := strings.Trim(nonIdent.ReplaceAllString(s, "_"), "_")
	if id == "" {
		return "element"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "c_" + id
	}
	return strings.ToLower(id)
}
