// Package latex scans LaTeX sources for figures: the image files they
// include, their captions and labels.
package latex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dgallion1/plotextract/internal/figure"
)

const (
	docHead = `\begin{document}`
	docTail = `\end{document}`

	figureHead     = `\begin{figure`
	wrapFigureHead = `\begin{wrapfigure`
	figureTail     = `\end{figure`
	wrapFigureTail = `\end{wrapfigure`

	includegraphicsHead = `\includegraphics`
	epsfigHead          = `\epsfig`
	inputHead           = `\input`
	captionHead         = `\caption`
	figcaptionHead      = `\figcaption`
	subfloatHead        = `\subfloat`
	subfigureHead       = `\subfigure`
	labelMacro          = `\label`
)

var degreesPattern = regexp.MustCompile(`(?:angle|rotate)=\s*(-?\d+)`)

// Scanner walks LaTeX files line by line and emits a figure.Tuple for each
// figure it can piece together. A Scanner is safe for concurrent use.
type Scanner struct {
	opts Options
	log  *slog.Logger
}

func NewScanner(opts Options) *Scanner {
	opts.CaptionSearchBack = max(opts.CaptionSearchBack, 0)
	opts.CaptionSearchForward = max(opts.CaptionSearchForward, 0)
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scanner{opts: opts, log: log}
}

// ScanFile reads path and scans it. primary marks the top-level document:
// its preamble is ignored and only it follows \input directives.
func (s *Scanner) ScanFile(ctx context.Context, path string, primary bool) ([]figure.Tuple, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read latex source: %w", err)
	}
	return s.Scan(ctx, path, string(data), primary), nil
}

type scanState struct {
	inFigure     bool
	image        figure.Value
	caption      figure.Value
	subCaptioned bool
	labels       []string
	activeLabel  string
	claimed      map[int]bool
}

func (st *scanState) reset() {
	st.image = figure.Value{}
	st.caption = figure.Value{}
	st.subCaptioned = false
	st.activeLabel = ""
}

func (st *scanState) pending() bool {
	return !st.image.IsEmpty() || !st.caption.IsEmpty()
}

// addImage folds name into the current image unless it is a placeholder or
// already present.
func (st *scanState) addImage(name string) {
	name = strings.TrimSpace(name)
	if name == "" || name == NoFilename {
		return
	}
	if st.image.Main() == name || slices.Contains(st.image.Subs(), name) {
		return
	}
	st.image = st.image.Append(name)
}

func (st *scanState) addCaption(c string) {
	switch st.caption.Shape() {
	case figure.Empty:
		st.caption = figure.One(c)
	case figure.Compound:
		if st.subCaptioned && st.caption.Main() == "" {
			st.caption = figure.Many(c, st.caption.Subs()...)
		} else {
			st.caption = st.caption.AppendSub(c)
		}
	default:
		if st.caption.Main() != c {
			st.caption = st.caption.Append(c)
		}
	}
}

// Scan extracts figures from content, which was read from path. Files named
// by \input are scanned too when primary is set; their tuples follow the
// tuples of the figure being built when the directive was met.
func (s *Scanner) Scan(ctx context.Context, path, content string, primary bool) []figure.Tuple {
	lines := prepareLines(content, primary)
	dir := filepath.Dir(path)
	fnOpts := FilenameOptions{CommasOK: s.opts.CommasOK}

	st := &scanState{claimed: make(map[int]bool)}
	var out []figure.Tuple
	flush := func(at int) {
		if st.pending() {
			out = append(out, s.merge(lines, at, st, path)...)
		}
		st.reset()
	}

	for i, line := range lines {
		if line == "" {
			continue
		}

		if strings.Contains(line, figureHead) || strings.Contains(line, wrapFigureHead) {
			flush(i)
			st.inFigure = true
		}

		subLine := strings.Contains(line, subfloatHead) || strings.Contains(line, subfigureHead)
		ownsImages := !subLine && !st.claimed[i]

		if ownsImages && isEPSLine(line) {
			s.foldEPS(lines, i, st)
		}

		if strings.Contains(line, "rotate=") || strings.Contains(line, "angle=") {
			s.rotate(ctx, lines, i, dir, fnOpts)
		}

		if ownsImages {
			if idx := strings.Index(line, includegraphicsHead); idx >= 0 {
				if name, _, ok := capture(lines, i, idx, Curly); ok {
					st.addImage(name)
				}
			}
		}

		if primary && strings.Contains(line, inputHead) {
			out = append(out, s.scanIncludes(ctx, line, path)...)
		}

		if idx := lastIndexAny(line, captionHead, figcaptionHead); idx >= 0 {
			if span, ok := MatchBraces(lines, i, idx, Curly); ok {
				st.addCaption(AssembleCaption(s.log, lines, span))
			}
		}

		if idx := strings.Index(line, subfloatHead); idx >= 0 {
			s.subfloat(lines, i, idx, st)
		}

		if idx := strings.Index(line, subfigureHead); idx >= 0 {
			s.subfigure(lines, i, idx, st)
		}

		if idx := strings.Index(line, labelMacro); idx >= 0 {
			if text, _, ok := capture(lines, i, idx, Curly); ok {
				label := strings.TrimSpace(text)
				if !slices.Contains(st.labels, label) {
					if st.inFigure {
						st.activeLabel = label
					}
					st.labels = append(st.labels, label)
				}
			}
		}

		if strings.Contains(line, figureTail) || strings.Contains(line, wrapFigureTail) ||
			strings.Contains(line, docTail) {
			st.inFigure = false
			flush(i)
		}
		if strings.Contains(line, docTail) {
			break
		}
	}
	return out
}

func isEPSLine(line string) bool {
	return strings.Contains(line, ".eps") || strings.Contains(line, ".ps") ||
		strings.Contains(line, epsfigHead)
}

// foldEPS picks up PostScript style references on line i and, since such
// directives are often wrapped, on the two lines after it.
func (s *Scanner) foldEPS(lines []string, i int, st *scanState) {
	line := lines[i]
	ext := strings.Contains(line, ".eps") || strings.Contains(line, ".ps")
	for _, name := range FindFilenames(line, FilenameOptions{Ext: ext, CommasOK: s.opts.CommasOK}) {
		if plausibleFilename(name) {
			st.addImage(name)
		}
	}
	for j := i + 1; j <= i+2 && j < len(lines); j++ {
		next := lines[j]
		if strings.Contains(next, subfloatHead) || strings.Contains(next, subfigureHead) {
			continue
		}
		for _, name := range FindFilenames(next, FilenameOptions{CommasOK: s.opts.CommasOK}) {
			if hasImageExtension(name) && plausibleFilename(name) {
				st.addImage(name)
			}
		}
	}
}

// plausibleFilename rejects candidates still carrying macro syntax.
func plausibleFilename(name string) bool {
	return name != NoFilename && name != "" && !strings.ContainsAny(name, `\{}[]=`)
}

// rotate applies an angle=/rotate= directive on line i to the first nearby
// filename that resolves to an extracted image. Degrees are negated: LaTeX
// rotates counter-clockwise.
func (s *Scanner) rotate(ctx context.Context, lines []string, i int, dir string, fnOpts FilenameOptions) {
	if s.opts.Images == nil || s.opts.Rotator == nil {
		return
	}
	m := degreesPattern.FindStringSubmatch(lines[i])
	if m == nil {
		return
	}
	deg, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}

	cands := FindFilenames(lines[i], fnOpts)
	if i+1 < len(lines) {
		cands = append(cands, FindFilenames(lines[i+1], fnOpts)...)
	}
	if i > 0 {
		cands = append(cands, FindFilenames(lines[i-1], fnOpts)...)
	}

	tried := make(map[string]bool)
	for _, c := range cands {
		if c == NoFilename || tried[c] {
			continue
		}
		tried[c] = true
		path, ok := s.opts.Images.Locate(c, dir)
		if !ok {
			continue
		}
		res := s.opts.Rotator.Rotate(ctx, path, -deg)
		if !res.OK() {
			s.log.Warn("image rotation failed", "path", path, "degrees", -deg, "outcome", res.Outcome.String(), "error", res.Err)
		} else {
			s.log.Debug("image rotated", "path", path, "degrees", -deg)
		}
		return
	}
}

// scanIncludes follows the \input directives on line and scans each
// resolved file as a non-primary document.
func (s *Scanner) scanIncludes(ctx context.Context, line, from string) []figure.Tuple {
	var out []figure.Tuple
	for _, name := range FindFilenames(line, FilenameOptions{TeX: true, CommasOK: s.opts.CommasOK}) {
		if name == NoFilename {
			continue
		}
		path, ok := resolveInclude(name, from)
		if !ok || path == from {
			continue
		}
		tuples, err := s.ScanFile(ctx, path, false)
		if err != nil {
			s.log.Warn("included file unreadable", "path", path, "error", err)
			continue
		}
		s.log.Debug("scanned included file", "path", path, "figures", len(tuples))
		out = append(out, tuples...)
	}
	return out
}

// subfloat handles \subfloat[sub caption]{body}. The body names the sub-image
// directly, through \includegraphics, or through a filename option.
func (s *Scanner) subfloat(lines []string, i, idx int, st *scanState) {
	st.image = st.image.Promote()
	st.caption = st.caption.Promote()
	st.subCaptioned = true

	sq, ok := MatchBraces(lines, i, idx, Square)
	if !ok {
		return
	}
	st.caption = st.caption.AppendSub(AssembleCaption(s.log, lines, sq))

	bl, bc, ok := bodyStart(lines, sq.CloseLine, sq.CloseCol)
	if !ok {
		return
	}
	body, span, ok := capture(lines, bl, bc, Curly)
	if !ok {
		return
	}
	for l := span.OpenLine; l <= span.CloseLine; l++ {
		st.claimed[l] = true
	}
	if name := s.subImage(body); name != "" && name != NoFilename {
		st.image = st.image.AppendSub(name)
	}
}

// bodyStart locates the brace group that must directly follow the closing
// bracket at (line, col): on the same line after optional blanks, or opening
// the next line.
func bodyStart(lines []string, line, col int) (int, int, bool) {
	rest := lines[line][col+1:]
	if trimmed := strings.TrimLeft(rest, " \t"); trimmed != "" {
		if trimmed[0] != '{' {
			return 0, 0, false
		}
		return line, col + 1 + len(rest) - len(trimmed), true
	}
	if next := line + 1; next < len(lines) && strings.HasPrefix(lines[next], "{") {
		return next, 0, true
	}
	return 0, 0, false
}

func (s *Scanner) subImage(body string) string {
	if idx := strings.Index(body, includegraphicsHead); idx >= 0 {
		name, _, ok := capture([]string{body}, 0, idx, Curly)
		if !ok {
			return ""
		}
		return strings.TrimSpace(name)
	}
	if strings.ContainsAny(body, "{=") {
		for _, name := range FindFilenames(body, FilenameOptions{CommasOK: s.opts.CommasOK}) {
			if plausibleFilename(name) {
				return name
			}
		}
		return ""
	}
	return strings.TrimSpace(body)
}

// subfigure handles \subfigure[sub caption]{...\includegraphics{name}...}
// where the graphic may sit on a following line.
func (s *Scanner) subfigure(lines []string, i, idx int, st *scanState) {
	st.image = st.image.Promote()
	st.caption = st.caption.Promote()
	st.subCaptioned = true

	if sq, ok := MatchBraces(lines, i, idx, Square); ok {
		st.caption = st.caption.AppendSub(AssembleCaption(s.log, lines, sq))
	}

	for j := i; j < len(lines); j++ {
		col := 0
		if j == i {
			col = idx
		}
		if k := strings.Index(lines[j][col:], includegraphicsHead); k >= 0 {
			if name, _, ok := capture(lines, j, col+k, Curly); ok {
				if name = strings.TrimSpace(name); name != "" {
					st.image = st.image.AppendSub(name)
				}
			}
			st.claimed[j] = true
			return
		}
		if j > i && (strings.Contains(lines[j], figureTail) || strings.Contains(lines[j], wrapFigureTail) ||
			strings.Contains(lines[j], subfigureHead)) {
			return
		}
	}
}

// lastIndexAny returns the largest index at which any of the macros occurs
// in line, or -1.
func lastIndexAny(line string, macros ...string) int {
	best := -1
	for _, m := range macros {
		if i := strings.Index(line, m); i > best {
			best = i
		}
	}
	return best
}
