// Package params enumerates model parameters in a fixed order and converts
// between per-parameter tensors and a single flat vector θ.
//
// The ordering is declaration order: the order in which a model adds its
// parameters to its Set. A Layout captures that ordering (names, shapes and
// offsets) once, at extraction time, and every consumer of θ (Jacobian
// columns, ridge solutions, unflattening) is checked against it.
package params

import (
	"fmt"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Parameter is a named trainable tensor.
type Parameter struct {
	name  string
	value *tensor.Dense
}

// New creates a new parameter.
//
// Parameters:
//   - name: Descriptive name, unique within a Set (e.g., "net.0.weight")
//   - value: The initialized parameter tensor
func New(name string, value *tensor.Dense) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.Dense {
	return p.value
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.value.Shape()
}

// Set is an ordered collection of uniquely named parameters.
type Set struct {
	params []*Parameter
	index  map[string]int
}

// NewSet creates a set from parameters in declaration order.
func NewSet(ps ...*Parameter) (*Set, error) {
	s := &Set{index: make(map[string]int, len(ps))}
	for _, p := range ps {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a parameter. Names must be unique.
func (s *Set) Add(p *Parameter) error {
	if _, dup := s.index[p.name]; dup {
		return fmt.Errorf("params: duplicate parameter name %q", p.name)
	}
	s.index[p.name] = len(s.params)
	s.params = append(s.params, p)
	return nil
}

// Len returns the number of parameters.
func (s *Set) Len() int {
	return len(s.params)
}

// All returns the parameters in declaration order.
func (s *Set) All() []*Parameter {
	return s.params
}

// Get returns the parameter with the given name.
func (s *Set) Get(name string) (*Parameter, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.params[i], true
}

// Values returns the parameter tensors in declaration order.
func (s *Set) Values() []*tensor.Dense {
	out := make([]*tensor.Dense, len(s.params))
	for i, p := range s.params {
		out[i] = p.value
	}
	return out
}

// Size returns P, the total number of scalar parameters.
func (s *Set) Size() int {
	n := 0
	for _, p := range s.params {
		n += p.value.Len()
	}
	return n
}

// Layout returns the ordering metadata of the set.
func (s *Set) Layout() Layout {
	entries := make([]Entry, len(s.params))
	off := 0
	for i, p := range s.params {
		entries[i] = Entry{Name: p.name, Shape: p.value.Shape().Clone(), Offset: off}
		off += p.value.Len()
	}
	return Layout{entries: entries, size: off}
}

// Assign copies values into the parameters after checking names and shapes.
// values is keyed by parameter name; every parameter must be present.
func (s *Set) Assign(values map[string]*tensor.Dense) error {
	for _, p := range s.params {
		v, ok := values[p.name]
		if !ok {
			return errs.Shape("parameter "+p.name, p.Shape(), "missing")
		}
		if !v.Shape().Equal(p.Shape()) {
			return errs.Shape("parameter "+p.name, p.Shape(), v.Shape())
		}
	}
	if len(values) != len(s.params) {
		return errs.Shape("parameter count", len(s.params), len(values))
	}
	for _, p := range s.params {
		copy(p.value.Data(), values[p.name].Data())
	}
	return nil
}

// Entry describes one parameter inside a flat vector.
type Entry struct {
	Name   string
	Shape  tensor.Shape
	Offset int
}

// Len returns the number of scalars in the entry.
func (e Entry) Len() int {
	return e.Shape.NumElements()
}

// Layout is the fixed parameter ordering of a flat vector θ.
type Layout struct {
	entries []Entry
	size    int
}

// Entries returns the layout entries in order.
func (l Layout) Entries() []Entry {
	return l.entries
}

// Size returns P.
func (l Layout) Size() int {
	return l.size
}

// NameOf returns the name of the parameter owning flat index col and the
// position inside it.
func (l Layout) NameOf(col int) (string, int) {
	for _, e := range l.entries {
		if col >= e.Offset && col < e.Offset+e.Len() {
			return e.Name, col - e.Offset
		}
	}
	return "", -1
}

// ScalarNames returns "name_pos" labels for every flat index.
func (l Layout) ScalarNames() []string {
	names := make([]string, 0, l.size)
	for _, e := range l.entries {
		for pos := 0; pos < e.Len(); pos++ {
			names = append(names, fmt.Sprintf("%s_%d", e.Name, pos))
		}
	}
	return names
}

// Check returns a ShapeMismatchError unless other has the same ordering,
// names and shapes.
func (l Layout) Check(other Layout) error {
	if len(l.entries) != len(other.entries) {
		return errs.Shape("parameter count", len(l.entries), len(other.entries))
	}
	for i, e := range l.entries {
		o := other.entries[i]
		if e.Name != o.Name {
			return errs.Shape(fmt.Sprintf("parameter %d name", i), e.Name, o.Name)
		}
		if !e.Shape.Equal(o.Shape) {
			return errs.Shape("parameter "+e.Name, e.Shape, o.Shape)
		}
	}
	return nil
}

// Flatten concatenates the parameter values in declaration order.
func Flatten(s *Set) ([]float64, Layout) {
	layout := s.Layout()
	theta := make([]float64, 0, layout.size)
	for _, p := range s.params {
		theta = append(theta, p.value.Data()...)
	}
	return theta, layout
}

// Unflatten splits θ into tensors shaped by the layout.
func Unflatten(theta []float64, l Layout) ([]*tensor.Dense, error) {
	if len(theta) != l.size {
		return nil, errs.Shape("flat parameter vector", l.size, len(theta))
	}
	out := make([]*tensor.Dense, len(l.entries))
	for i, e := range l.entries {
		t, err := tensor.FromSlice(theta[e.Offset:e.Offset+e.Len()], e.Shape)
		if err != nil {
			return nil, fmt.Errorf("params: unflatten %s: %w", e.Name, err)
		}
		out[i] = t
	}
	return out, nil
}

// CheckTensors verifies that ts lines up with the layout entry by entry.
func (l Layout) CheckTensors(ts []*tensor.Dense) error {
	if len(ts) != len(l.entries) {
		return errs.Shape("parameter count", len(l.entries), len(ts))
	}
	for i, e := range l.entries {
		if !ts[i].Shape().Equal(e.Shape) {
			return errs.Shape("parameter "+e.Name, e.Shape, ts[i].Shape())
		}
	}
	return nil
}

// Restore builds a new set holding θ under the layout's names and shapes.
// The result is independent of any model: it is a snapshot of a point in
// parameter space.
func Restore(theta []float64, l Layout) (*Set, error) {
	values, err := Unflatten(theta, l)
	if err != nil {
		return nil, err
	}
	ps := make([]*Parameter, len(values))
	for i, e := range l.entries {
		ps[i] = New(e.Name, values[i])
	}
	return NewSet(ps...)
}
