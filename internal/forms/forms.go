// Package forms models HTML forms for server-rendered templates. The
// model is deliberately small: ordered fields, a widget per field and
// per-field error lists that the template error decorator picks up.
package forms

import (
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strings"
)

// Widget describes how a field renders. Attrs end up as HTML
// attributes on the input element.
type Widget struct {
	Kind  string
	Attrs map[string]string
}

// NewWidget creates a widget of the given kind.
func NewWidget(kind string) *Widget {
	return &Widget{Kind: kind, Attrs: make(map[string]string)}
}

// Attr sets an attribute and returns the widget for chaining.
func (w *Widget) Attr(key, value string) *Widget {
	if w.Attrs == nil {
		w.Attrs = make(map[string]string)
	}
	w.Attrs[key] = value
	return w
}

// Field is one named form input with its current value and errors.
type Field struct {
	Name   string
	Label  string
	Value  string
	Widget *Widget
	Errors []string
}

// NewField creates a field with a text widget by default.
func NewField(name, label string) *Field {
	return &Field{
		Name:   name,
		Label:  label,
		Widget: NewWidget("text"),
	}
}

// WithWidget replaces the field's widget and returns the field.
func (f *Field) WithWidget(w *Widget) *Field {
	f.Widget = w
	return f
}

// HTML renders the field's input element. Attributes come out in
// sorted order so rendering is deterministic.
func (f *Field) HTML() template.HTML {
	var b strings.Builder
	kind := "text"
	if f.Widget != nil && f.Widget.Kind != "" {
		kind = f.Widget.Kind
	}

	if kind == "textarea" {
		b.WriteString("<textarea")
		f.writeAttrs(&b)
		fmt.Fprintf(&b, ">%s</textarea>", template.HTMLEscapeString(f.Value))
		return template.HTML(b.String())
	}

	fmt.Fprintf(&b, `<input type=%q`, kind)
	f.writeAttrs(&b)
	if f.Value != "" {
		fmt.Fprintf(&b, ` value=%q`, template.HTMLEscapeString(f.Value))
	}
	b.WriteString(">")
	return template.HTML(b.String())
}

func (f *Field) writeAttrs(b *strings.Builder) {
	fmt.Fprintf(b, ` name=%q`, template.HTMLEscapeString(f.Name))
	if f.Widget == nil || len(f.Widget.Attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(f.Widget.Attrs))
	for k := range f.Widget.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s=%q`, k, template.HTMLEscapeString(f.Widget.Attrs[k]))
	}
}

// Form is an ordered collection of fields.
type Form struct {
	Fields []*Field

	byName map[string]*Field
}

// New builds a form from fields, preserving their order.
func New(fields ...*Field) *Form {
	f := &Form{
		Fields: fields,
		byName: make(map[string]*Field, len(fields)),
	}
	for _, field := range fields {
		f.byName[field.Name] = field
	}
	return f
}

// Field returns the named field, or nil.
func (f *Form) Field(name string) *Field {
	return f.byName[name]
}

// Bind populates field values from submitted form data.
func (f *Form) Bind(values url.Values) {
	for _, field := range f.Fields {
		if vs, ok := values[field.Name]; ok && len(vs) > 0 {
			field.Value = vs[0]
		}
	}
}

// AddError records an error message against a field. Unknown field
// names are ignored.
func (f *Form) AddError(name, message string) {
	if field := f.byName[name]; field != nil {
		field.Errors = append(field.Errors, message)
	}
}

// HasErrors reports whether any field carries an error.
func (f *Form) HasErrors() bool {
	for _, field := range f.Fields {
		if len(field.Errors) > 0 {
			return true
		}
	}
	return false
}
