package archive

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind is what a member looks like.
type Kind int

const (
	Other Kind = iota
	Source
	Image
)

// sniffLen bytes are read from each file for classification.
const sniffLen = 8 << 10

var latexMarkers = [][]byte{
	[]byte(`\documentclass`),
	[]byte(`\documentstyle`),
	[]byte(`\begin{document}`),
	[]byte(`\input{`),
	[]byte(`\section`),
	[]byte(`\begin{figure`),
}

var imageExts = map[string]bool{
	".eps": true, ".ps": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".pdf": true, ".bmp": true, ".tif": true, ".tiff": true,
	".svg": true, ".epsi": true, ".epsf": true,
}

// Classify sorts extracted files by content, falling back to the extension.
func Classify(files []string) Result {
	res := Result{All: files}
	for _, f := range files {
		if strings.Contains(filepath.Base(f), ",") {
			res.CommasInNames = true
		}
		switch KindOf(f) {
		case Source:
			res.Sources = append(res.Sources, f)
		case Image:
			res.Images = append(res.Images, f)
		}
	}
	return res
}

// KindOf classifies one file.
func KindOf(path string) Kind {
	head := sniff(path)
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case bytes.HasPrefix(head, []byte("%!PS")), bytes.HasPrefix(head, []byte("%PDF-")):
		return Image
	case len(head) > 0 && strings.HasPrefix(http.DetectContentType(head), "image/"):
		return Image
	case ext == ".tex" || ext == ".ltx":
		return Source
	}
	for _, m := range latexMarkers {
		if bytes.Contains(head, m) {
			return Source
		}
	}
	if imageExts[ext] {
		return Image
	}
	return Other
}

func sniff(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}
