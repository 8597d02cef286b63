// Package archive unpacks submission tarballs into a scratch directory and
// sorts the members into LaTeX sources and candidate figure images.
package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrTimeout is returned when the context deadline passes mid-extraction.
var ErrTimeout = errors.New("archive extraction timed out")

// errNotArchive marks input whose first tar header cannot be read.
var errNotArchive = errors.New("not a tar archive")

var gzipMagic = []byte{0x1f, 0x8b}

// Result lists extracted files. Every path is under the target directory.
type Result struct {
	All     []string
	Images  []string
	Sources []string

	// CommasInNames is set when any extracted file name contains a comma;
	// filename heuristics then accept commas.
	CommasInNames bool
}

// Extract unpacks archivePath (tar, optionally gzip compressed) into
// targetDir. A gzip stream that does not hold a tar is taken to be a single
// compressed file. Input that is neither yields an empty Result and no error.
func Extract(ctx context.Context, archivePath, targetDir string) (Result, error) {
	_, statErr := os.Stat(targetDir)
	created := errors.Is(statErr, os.ErrNotExist)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create target dir: %w", err)
	}

	files, gz, err := untar(ctx, archivePath, targetDir)
	if errors.Is(err, errNotArchive) && gz {
		files, err = gunzipSingle(ctx, archivePath, targetDir)
	}
	if err != nil {
		cleanup(targetDir, created, files)
		if errors.Is(err, errNotArchive) {
			return Result{}, nil
		}
		return Result{}, err
	}
	return Classify(files), nil
}

func cleanup(targetDir string, created bool, files []string) {
	if created {
		os.RemoveAll(targetDir)
		return
	}
	for _, f := range files {
		os.Remove(f)
	}
}

func open(path string) (*os.File, *bufio.Reader, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("open archive: %w", err)
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(gzipMagic))
	return f, br, len(magic) == 2 && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1], nil
}

func untar(ctx context.Context, archivePath, targetDir string) ([]string, bool, error) {
	f, br, gz, err := open(archivePath)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	var r io.Reader = br
	if gz {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, gz, errNotArchive
		}
		defer zr.Close()
		r = zr
	}
	tr := tar.NewReader(ctxReader{ctx: ctx, r: r})

	var files []string
	for first := true; ; first = false {
		hdr, err := tr.Next()
		if errors.Is(err, tar.ErrInsecurePath) {
			continue
		}
		if err == io.EOF {
			if first {
				return nil, gz, errNotArchive
			}
			return files, gz, nil
		}
		if err != nil {
			if cerr := contextErr(ctx); cerr != nil {
				return files, gz, cerr
			}
			if first {
				return nil, gz, errNotArchive
			}
			return files, gz, fmt.Errorf("read tar header: %w", err)
		}

		if !filepath.IsLocal(hdr.Name) {
			continue
		}
		dest := filepath.Join(targetDir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return files, gz, fmt.Errorf("create dir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(dest, tr); err != nil {
				if cerr := contextErr(ctx); cerr != nil {
					return files, gz, cerr
				}
				return files, gz, err
			}
			files = append(files, dest)
		}
	}
}

func gunzipSingle(ctx context.Context, archivePath, targetDir string) ([]string, error) {
	f, br, _, err := open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, errNotArchive
	}
	defer zr.Close()

	name := filepath.Base(archivePath)
	for _, ext := range []string{".gz", ".tgz", ".tar"} {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." {
		name = "main"
	}
	dest := filepath.Join(targetDir, name)
	if err := writeFile(dest, ctxReader{ctx: ctx, r: zr}); err != nil {
		if cerr := contextErr(ctx); cerr != nil {
			return []string{dest}, cerr
		}
		return []string{dest}, errNotArchive
	}
	return []string{dest}, nil
}

func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", dest, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Close()
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func contextErr(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
