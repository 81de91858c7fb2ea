package ioframe

import (
	"reflect"

	"github.com/pkg/errors"
)

// Field pairs a declared name with the Descriptor that reads/writes it.
type Field struct {
	Name string
	Desc Descriptor
}

// F is a constructor shorthand for Field, used when listing a Schema's
// fields in declaration order.
func F(name string, d Descriptor) Field {
	return Field{Name: name, Desc: d}
}

// Schema is a named, ordered sequence of Descriptors, a binary record
// definition built by composition rather than a surface syntax. A Schema
// is itself a Descriptor, so one Schema can nest inside another's
// LengthPrefixedObject/LengthPrefixedObjectList field.
type Schema struct {
	Name           string
	Fields         []Field
	postConstruct  func(*Instance) error
}

// NewSchema declares a schema from its fields in wire order.
func NewSchema(name string, fields ...Field) *Schema {
	return &Schema{Name: name, Fields: fields}
}

// OnBuild registers a hook run at the end of every New of an Instance of
// this schema (and so of every Build and every parse; Bytes does not run
// it), for invariants that span more than one
// field (e.g. recomputing a checksum). It returns s for chaining at
// declaration time.
func (s *Schema) OnBuild(hook func(*Instance) error) *Schema {
	s.postConstruct = hook
	return s
}

func (s *Schema) fieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// read implements Descriptor: it pushes a fresh mapping frame, decodes
// each field in order (making each decoded value visible to later
// Switch fields via Context), then builds an Instance from the results.
func (s *Schema) read(y *Yielder, ctx *Context) (any, error) {
	mapping := ctx.pushMapping()
	defer ctx.popMapping()

	values := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		v, err := f.Desc.read(y, ctx)
		if err != nil {
			return nil, newParseError("schema "+s.Name+": field "+f.Name, copyMapping(mapping), err)
		}
		mapping[f.Name] = v
		values[i] = v
	}
	return s.New(ctx, values...)
}

// write implements Descriptor: v must be an *Instance of this schema.
func (s *Schema) write(ctx *Context, v any) ([]byte, error) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, errors.Errorf("ioframe: schema %s: write wants *Instance, got %T", s.Name, v)
	}
	return inst.Bytes(ctx)
}

// New constructs an Instance directly from one value per field, in
// declaration order. This is the programmatic path for building a
// message to serialize, as opposed to parsing one off the wire. A value of
// UseDefault asks the field's descriptor for its own default (only
// MustEqual currently has one); any other descriptor rejects it.
func (s *Schema) New(ctx *Context, values ...any) (*Instance, error) {
	if len(values) != len(s.Fields) {
		return nil, errors.Errorf("ioframe: schema %s: need %d values, got %d", s.Name, len(s.Fields), len(values))
	}
	inst := &Instance{
		schema: s,
		Fields: make(map[string]any, len(s.Fields)),
		bins:   make(map[string][]byte, len(s.Fields)),
	}
	ctx.pushParent(inst)
	defer ctx.popParent()

	var cached []byte
	for i, f := range s.Fields {
		arg := values[i]
		if arg == UseDefault {
			dv, ok := f.Desc.(defaultValuer)
			if !ok {
				return nil, errors.Errorf("ioframe: schema %s: field %s has no default", s.Name, f.Name)
			}
			arg = dv.defaultValue()
		}
		inst.Fields[f.Name] = arg
		raw, err := f.Desc.write(ctx, arg)
		if err != nil {
			return nil, errors.Wrapf(err, "schema %s: field %s", s.Name, f.Name)
		}
		inst.bins[f.Name] = raw
		cached = append(cached, raw...)
	}
	inst.cached = cached
	inst.dirty = false

	if s.postConstruct != nil {
		if err := s.postConstruct(inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Build is New with a fresh, throwaway Context, the common case for
// constructing a single top-level message with no cross-schema Switch
// dependencies.
func (s *Schema) Build(values ...any) (*Instance, error) {
	return s.New(NewContext(), values...)
}

// NewParser creates a Parser that parses one Instance of this schema from
// a fresh input stream, using its own Context for the lifetime of the
// parse.
func (s *Schema) NewParser() *Parser {
	ctx := NewContext()
	return NewParser(func(y *Yielder) (any, error) { return s.read(y, ctx) })
}

// Parse is a one-shot convenience: feed data, optionally require it be
// consumed exactly (strict), and return the decoded Instance.
func (s *Schema) Parse(data []byte, strict bool) (*Instance, error) {
	p := s.NewParser()
	v, err := p.Parse(data, strict)
	if err != nil {
		return nil, err
	}
	inst, ok := v.(*Instance)
	if !ok {
		return nil, errors.Errorf("ioframe: schema %s: parse produced %T, not *Instance", s.Name, v)
	}
	return inst, nil
}

func copyMapping(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Instance is one decoded or constructed value of a Schema: a per-field
// decoded value plus its per-field serialized bytes, with a dirty-bit
// cached concatenation so repeated Bytes calls after no mutation are
// free.
type Instance struct {
	schema *Schema
	Fields map[string]any
	bins   map[string][]byte
	cached []byte
	dirty  bool
}

// Schema returns the schema this instance belongs to.
func (inst *Instance) Schema() *Schema { return inst.schema }

// Get returns the decoded value of a field by name.
func (inst *Instance) Get(name string) any { return inst.Fields[name] }

// Set mutates a field's decoded value, invalidating the cached
// serialization so the next Bytes call recomputes it (and any sibling
// Switch/length field that depends on it).
func (inst *Instance) Set(name string, value any) {
	inst.Fields[name] = value
	inst.dirty = true
}

// Bytes returns the serialized form of the instance, recomputing it (and
// every field's individual encoding, since a Switch elsewhere may depend
// on any of them) only if a field has been mutated since the last call.
func (inst *Instance) Bytes(ctx *Context) ([]byte, error) {
	if !inst.dirty {
		return inst.cached, nil
	}
	ctx.pushParent(inst)
	defer ctx.popParent()

	var out []byte
	for _, f := range inst.schema.Fields {
		raw, err := f.Desc.write(ctx, inst.Fields[f.Name])
		if err != nil {
			return nil, errors.Wrapf(err, "schema %s: field %s", inst.schema.Name, f.Name)
		}
		inst.bins[f.Name] = raw
		out = append(out, raw...)
	}
	inst.cached = out
	inst.dirty = false
	return out, nil
}

// Equal reports whether two instances of the same schema hold equal
// field values, declaration order, ignoring any cached serialization.
func (inst *Instance) Equal(other *Instance) bool {
	if other == nil || inst.schema != other.schema {
		return false
	}
	for _, f := range inst.schema.Fields {
		if !reflect.DeepEqual(inst.Fields[f.Name], other.Fields[f.Name]) {
			return false
		}
	}
	return true
}
