package figure

import (
	"path/filepath"
	"strings"
)

// Locator resolves the image names written in LaTeX source to files that
// actually exist in the extracted (and converted) archive.
type Locator struct {
	images []string
	byPath map[string]string
}

// NewLocator indexes the given image paths. Order matters for stem matches:
// the first image with a matching stem wins.
func NewLocator(images []string) *Locator {
	l := &Locator{
		images: images,
		byPath: make(map[string]string, len(images)),
	}
	for _, img := range images {
		l.byPath[filepath.Clean(img)] = img
	}
	return l
}

// Locate returns the image file referenced as name from a source file living
// in sourceDir. LaTeX lets authors drop the extension and we convert to PNG,
// so exact, ".png"-suffixed and same-stem matches are tried in that order.
func (l *Locator) Locate(name, sourceDir string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == "ERROR" {
		return "", false
	}
	name = strings.TrimPrefix(name, "./")

	base := filepath.Join(sourceDir, name)
	for _, c := range []string{base, base + ".png", stem(base) + ".png"} {
		if img, ok := l.byPath[filepath.Clean(c)]; ok {
			return img, true
		}
	}

	want := stem(filepath.Base(name))
	for _, img := range l.images {
		if stem(filepath.Base(img)) == want {
			return img, true
		}
	}
	return "", false
}

func stem(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}
