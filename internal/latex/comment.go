package latex

import "strings"

// stripComment drops everything from the first unescaped % on. A % preceded
// by an odd run of backslashes is a literal percent sign.
func stripComment(line string) string {
	i := 0
	for i < len(line) {
		idx := strings.IndexByte(line[i:], '%')
		if idx < 0 {
			return line
		}
		pos := i + idx
		backslashes := 0
		for j := pos - 1; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			i = pos + 1
			continue
		}
		return line[:pos]
	}
	return line
}

// prepareLines splits raw file content into trimmed, comment-free lines. For
// the top-level document everything before \begin{document} is blanked.
func prepareLines(content string, primary bool) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(stripComment(l))
	}
	if primary {
		for i, l := range lines {
			if strings.Contains(l, docHead) {
				break
			}
			lines[i] = ""
		}
	}
	return lines
}
