package latex

import (
	"reflect"
	"slices"
	"testing"
)

func TestFindFilenames_NothingFound(t *testing.T) {
	for _, line := range []string{"", `\caption{A plot of things.}`, `\label{fig:one}`} {
		got := FindFilenames(line, FilenameOptions{})
		if !reflect.DeepEqual(got, []string{NoFilename}) {
			t.Errorf("%q: expected sentinel only, got %v", line, got)
		}
	}
}

func TestFindFilenames_Candidates(t *testing.T) {
	tests := []struct {
		name string
		line string
		opts FilenameOptions
		want string
	}{
		{"braced", `\includegraphics[width=3in]{plot.png}`, FilenameOptions{}, "plot.png"},
		{"bare eps", `plot.eps`, FilenameOptions{Ext: true}, "plot.eps"},
		{"epsfig file option", `\epsfig{file=fig.eps,width=3in}`, FilenameOptions{Ext: true}, "fig.eps"},
		{"psfig figure option", `\psfig{figure=dir/fig.ps}`, FilenameOptions{Ext: true}, "dir/fig.ps"},
		{"input with tex", `\input{sections/results.tex}`, FilenameOptions{TeX: true}, "sections/results.tex"},
		{"quoted", `\plotone "graph.eps"`, FilenameOptions{Ext: true}, "graph.eps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindFilenames(tt.line, tt.opts)
			if !slices.Contains(got, tt.want) {
				t.Errorf("expected %q among %v", tt.want, got)
			}
			if slices.Contains(got, NoFilename) {
				t.Errorf("sentinel kept alongside real candidates: %v", got)
			}
		})
	}
}

func TestFindFilenames_NoDuplicates(t *testing.T) {
	got := FindFilenames(`plot.eps`, FilenameOptions{Ext: true})
	if !reflect.DeepEqual(got, []string{"plot.eps"}) {
		t.Errorf("expected [plot.eps], got %v", got)
	}
}

func TestFindFilenames_CommaNamesSplitOnSpaceOnly(t *testing.T) {
	got := FindFilenames(`\includegraphics{a,b.png}`, FilenameOptions{CommasOK: true})
	if !slices.Contains(got, "a,b.png") {
		t.Fatalf("expected comma name kept whole, got %v", got)
	}
	if slices.Contains(got, "a") || slices.Contains(got, "b.png") {
		t.Errorf("comma candidate was split on commas: %v", got)
	}

	without := FindFilenames(`\includegraphics{a,b.png}`, FilenameOptions{})
	if slices.Contains(without, "a,b.png") {
		t.Errorf("comma accepted without CommasOK: %v", without)
	}
}

func TestHasImageExtension(t *testing.T) {
	for name, want := range map[string]bool{
		"fig.eps":   true,
		"FIG.PNG":   true,
		"plot.pdf":  true,
		"notes.tex": false,
		"width=3in": false,
	} {
		if got := hasImageExtension(name); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}
