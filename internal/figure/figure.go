// Package figure holds the values the LaTeX scanner accumulates and the
// tuples it emits.
package figure

// Shape tells which variant a Value holds.
type Shape int

const (
	Empty Shape = iota
	Single
	Compound
)

// Value is an image reference or caption text. It is either empty, a single
// string, or a compound of a main part plus ordered sub parts (sub-figures
// sharing one umbrella figure).
type Value struct {
	shape Shape
	main  string
	subs  []string
}

// One returns a Single value.
func One(s string) Value {
	return Value{shape: Single, main: s}
}

// Many returns a Compound value. subs is copied.
func Many(main string, subs ...string) Value {
	return Value{shape: Compound, main: main, subs: append([]string(nil), subs...)}
}

func (v Value) Shape() Shape { return v.shape }

func (v Value) IsEmpty() bool { return v.shape == Empty }

func (v Value) IsCompound() bool { return v.shape == Compound }

// Main returns the single string, or the main part of a compound.
func (v Value) Main() string { return v.main }

// Subs returns the sub parts of a compound; nil otherwise.
func (v Value) Subs() []string { return v.subs }

// Append folds s in: empty becomes Single(s), Single(x) becomes
// Compound("", [x, s]), Compound gets s appended to its subs.
func (v Value) Append(s string) Value {
	switch v.shape {
	case Empty:
		return One(s)
	case Single:
		return Many("", v.main, s)
	default:
		v.subs = append(append([]string(nil), v.subs...), s)
		return v
	}
}

// Promote turns a non-compound value into Compound(main, []). An empty value
// becomes Compound("", []).
func (v Value) Promote() Value {
	if v.shape == Compound {
		return v
	}
	return Many(v.main)
}

// AppendSub appends to the subs of a compound, promoting first if needed.
func (v Value) AppendSub(s string) Value {
	v = v.Promote()
	v.subs = append(append([]string(nil), v.subs...), s)
	return v
}

// Without drops every occurrence of s from a compound (main is blanked,
// subs removed). Non-compound values are returned unchanged.
func (v Value) Without(s string) Value {
	if v.shape != Compound {
		return v
	}
	out := Value{shape: Compound, main: v.main}
	if out.main == s {
		out.main = ""
	}
	for _, sub := range v.subs {
		if sub != s {
			out.subs = append(out.subs, sub)
		}
	}
	return out
}

// Tuple is one extracted figure.
type Tuple struct {
	Image    string
	Caption  string
	Label    string
	Contexts []string

	// Source is the LaTeX file the figure was found in.
	Source string
}
