// Package treedump takes point-in-time snapshots of pagewait node trees,
// for diagnosing paths that fail to resolve.
package treedump

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/pagewait/pagewait"
)

// Snapshot is the state of a node and, recursively, of the children that
// were listed when it was taken.
type Snapshot struct {
	Label      string
	Displayed  bool
	Expandable bool
	Expanded   bool
	Container  bool
	Children   []*Snapshot
}

type options struct {
	force    bool
	maxDepth int
}

// Option is a Take option.
type Option = func(*options)

// Force expands every collapsed container before listing its children.
// Without it only the currently expanded part of the tree is listed.
func Force() Option {
	return func(o *options) { o.force = true }
}

// MaxDepth stops listing children n levels below the root. Zero or less
// means no limit.
func MaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// Take snapshots root and the tree below it.
func Take(ctx context.Context, root pagewait.Node, opts ...Option) (*Snapshot, error) {
	var o options
	for _, f := range opts {
		f(&o)
	}
	return take(ctx, root, 0, o)
}

func take(ctx context.Context, n pagewait.Node, depth int, o options) (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Label, err = n.Label(ctx); err != nil {
		return nil, err
	}
	if s.Displayed, err = n.Displayed(ctx); err != nil {
		return nil, err
	}
	if s.Expandable, err = n.Expandable(ctx); err != nil {
		return nil, err
	}
	if s.Container, err = pagewait.IsContainer(ctx, n); err != nil {
		return nil, err
	}
	limit := o.maxDepth > 0 && depth >= o.maxDepth
	if s.Expandable {
		if s.Expanded, err = n.Expanded(ctx); err != nil {
			return nil, err
		}
		if !s.Expanded && o.force && !limit {
			if err := n.Expand(ctx); err != nil {
				return nil, fmt.Errorf("treedump: expand %q: %w", s.Label, err)
			}
			s.Expanded = true
		}
	}
	switch {
	case limit,
		depth > 0 && !s.Container,
		s.Expandable && !s.Expanded:
		return &s, nil
	}
	kids, err := n.Children(ctx)
	if err != nil {
		return nil, err
	}
	for _, kid := range kids {
		c, err := take(ctx, kid, depth+1, o)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, c)
	}
	return &s, nil
}

// Paths returns the path of every leaf in s, relative to s. Containers
// without listed children are not leaves.
func (s *Snapshot) Paths() []pagewait.Path {
	var out []pagewait.Path
	var visit func(*Snapshot, pagewait.Path)
	visit = func(n *Snapshot, p pagewait.Path) {
		for _, c := range n.Children {
			cp := p.Join(c.Label)
			if !c.Container {
				out = append(out, cp)
				continue
			}
			visit(c, cp)
		}
	}
	visit(s, nil)
	return out
}

// Find returns the snapshot addressed by p, relative to s, comparing labels
// case-insensitively. It returns nil when p was not listed.
func (s *Snapshot) Find(p pagewait.Path) *Snapshot {
	n := s
next:
	for _, seg := range p {
		for _, c := range n.Children {
			if strings.EqualFold(c.Label, seg) {
				n = c
				continue next
			}
		}
		return nil
	}
	return n
}

// WriteTo writes s as an indented outline, one node per line.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	s.outline(&b, 0)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (s *Snapshot) outline(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(s.Label)
	var flags []string
	switch {
	case s.Expandable && s.Expanded:
		flags = append(flags, "+")
	case s.Expandable:
		flags = append(flags, "-")
	}
	if s.Container {
		flags = append(flags, "container")
	}
	if !s.Displayed {
		flags = append(flags, "hidden")
	}
	if len(flags) != 0 {
		b.WriteString(" [" + strings.Join(flags, " ") + "]")
	}
	b.WriteByte('\n')
	for _, c := range s.Children {
		c.outline(b, depth+1)
	}
}

// String satisfies fmt.Stringer.
func (s *Snapshot) String() string {
	var b strings.Builder
	s.outline(&b, 0)
	return b.String()
}

// MarshalEasyJSON satisfies easyjson.Marshaler.
func (s *Snapshot) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"label":`)
	out.String(s.Label)
	out.RawString(`,"displayed":`)
	out.Bool(s.Displayed)
	if s.Expandable {
		out.RawString(`,"expandable":true,"expanded":`)
		out.Bool(s.Expanded)
	}
	if s.Container {
		out.RawString(`,"container":true`)
	}
	if len(s.Children) != 0 {
		out.RawString(`,"children":[`)
		for i, c := range s.Children {
			if i > 0 {
				out.RawByte(',')
			}
			c.MarshalEasyJSON(out)
		}
		out.RawByte(']')
	}
	out.RawByte('}')
}

// MarshalJSON satisfies json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	s.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

// UnmarshalEasyJSON satisfies easyjson.Unmarshaler.
func (s *Snapshot) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "label":
			s.Label = in.String()
		case "displayed":
			s.Displayed = in.Bool()
		case "expandable":
			s.Expandable = in.Bool()
		case "expanded":
			s.Expanded = in.Bool()
		case "container":
			s.Container = in.Bool()
		case "children":
			in.Delim('[')
			for !in.IsDelim(']') {
				c := new(Snapshot)
				c.UnmarshalEasyJSON(in)
				s.Children = append(s.Children, c)
				in.WantComma()
			}
			in.Delim(']')
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// UnmarshalJSON satisfies json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	s.UnmarshalEasyJSON(&r)
	return r.Error()
}
