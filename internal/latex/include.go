package latex

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var leadingMacro = regexp.MustCompile(`^\\\w+ `)

// resolveInclude finds the file an \input names, looking next to the
// including file, in the named subdirectory, and one and two levels up.
// A second pass retries the name with ".tex" appended.
func resolveInclude(name, from string) (string, bool) {
	if p, ok := lookupInclude(name, from); ok {
		return p, true
	}
	return lookupInclude(strings.TrimSpace(name)+".tex", from)
}

func lookupInclude(name, from string) (string, bool) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "input")
	if m := leadingMacro.FindString(name); m != "" {
		name = name[len(m):]
	}
	name = strings.TrimSpace(strings.TrimPrefix(name, "./"))
	if name == "" || name == ".tex" {
		return "", false
	}

	file := filepath.Base(name)
	folder := filepath.Dir(name)
	if folder == "." {
		folder = ""
	}

	cur := filepath.Dir(from)
	up := filepath.Dir(cur)
	for _, dir := range []string{
		cur,
		filepath.Join(cur, folder),
		filepath.Join(up, folder),
		filepath.Join(filepath.Dir(up), folder),
	} {
		p := filepath.Join(dir, file)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
