package latex

import (
	"regexp"
	"slices"
	"strings"
)

// NoFilename is returned alone by FindFilenames when no probe matched.
const NoFilename = "ERROR"

// FilenameOptions tune the character class and suffix FindFilenames accepts.
type FilenameOptions struct {
	TeX      bool // names may carry a .tex/.latex style suffix
	Ext      bool // names must end in an .eps/.ps family suffix
	CommasOK bool // the archive has files with commas in their names
}

type filenameProbes struct {
	assign    *regexp.Regexp // =NAME, or =NAME<space>
	prefixed  *regexp.Regexp // file=NAME, psfile=NAME, figure=NAME
	enclosed  *regexp.Regexp // {NAME} [NAME] "NAME" 'NAME'
	whole     *regexp.Regexp // the line is just NAME
	wholeTerm *regexp.Regexp // the line is NAME followed by a terminator
	trailing  *regexp.Regexp // NAME at the end of the line
}

var probeCache = func() map[FilenameOptions]*filenameProbes {
	m := make(map[FilenameOptions]*filenameProbes, 8)
	for _, tex := range []bool{false, true} {
		for _, ext := range []bool{false, true} {
			for _, commas := range []bool{false, true} {
				o := FilenameOptions{TeX: tex, Ext: ext, CommasOK: commas}
				m[o] = compileProbes(o)
			}
		}
	}
	return m
}()

func compileProbes(o FilenameOptions) *filenameProbes {
	v := `\s*[A-Za-z0-9\-=+/\\_.%#]+`
	if o.CommasOK {
		v = `\s*[A-Za-z0-9\-=+/\\_.,%#]+`
	}
	if o.Ext {
		v += `\.e*ps[texfi2]*`
	}
	if o.TeX {
		v += `[.latex]*`
	}
	return &filenameProbes{
		assign:    regexp.MustCompile(`=` + v + `[ ,]`),
		prefixed:  regexp.MustCompile(`(?:[ps]*file=|figure=)` + v + `[,\]} ]*`),
		enclosed:  regexp.MustCompile(`["'{\[]` + v + `[}\],"']`),
		whole:     regexp.MustCompile(`^` + v + `$`),
		wholeTerm: regexp.MustCompile(`^` + v + `[,} $]`),
		trailing:  regexp.MustCompile(`\s*` + v + `\s*$`),
	}
}

// FindFilenames guesses which file names a line of LaTeX refers to. It runs
// six independent probes and returns every distinct candidate in probe order.
// When nothing matched the result is []string{NoFilename}.
//
// Candidates holding a space or a comma are additionally split on spaces.
// The comma case splitting on spaces rather than commas is long-standing
// behaviour that downstream cleaning relies on; keep it.
func FindFilenames(line string, opts FilenameOptions) []string {
	p := probeCache[opts]
	found := []string{NoFilename}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if !slices.Contains(found, s) {
			found = append(found, s)
		}
	}

	for _, m := range p.assign.FindAllString(line, -1) {
		add(m[1 : len(m)-1])
	}
	for _, m := range p.prefixed.FindAllString(line, -1) {
		_, after, _ := strings.Cut(m, "=")
		add(strings.TrimRight(after, ",]} "))
	}
	for _, m := range p.enclosed.FindAllString(line, -1) {
		add(m[1 : len(m)-1])
	}
	for _, re := range []*regexp.Regexp{p.whole, p.wholeTerm, p.trailing} {
		for _, m := range re.FindAllString(line, -1) {
			add(m)
		}
	}

	if len(found) > 1 {
		found = found[1:]
	}

	out := make([]string, 0, len(found))
	for _, f := range found {
		if f != "" {
			out = append(out, f)
		}
	}
	for i := 0; i < len(out); i++ {
		f := out[i]
		if !strings.ContainsAny(f, " ,") {
			continue
		}
		for _, piece := range strings.Split(f, " ") {
			if piece != "" && !slices.Contains(out, piece) {
				out = append(out, piece)
			}
		}
	}
	if len(out) == 0 {
		return []string{NoFilename}
	}
	return out
}

// imageExtensions are the suffixes treated as image files throughout.
var imageExtensions = []string{
	".eps", ".ps", ".png", ".jpg", ".jpeg", ".gif", ".pdf",
	".bmp", ".tif", ".tiff", ".svg", ".epsi", ".epsf", ".eps2",
}

// hasImageExtension reports whether name ends in a known image suffix.
func hasImageExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
