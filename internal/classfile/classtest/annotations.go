package classtest

import "github.com/mvp-joe/project-remapper/internal/classfile"

// Annotation is an annotation with its element values. Type is a field
// descriptor ("Lcom/example/Marker;").
type Annotation struct {
	Type     string
	Elements []Element
}

// Element is one name=value pair.
type Element struct {
	Name  string
	Value Value
}

// Value is an element_value.
type Value interface {
	appendTo(c *Class, b []byte) []byte
}

// EnumValue is an enum constant of enum type Type (a field descriptor).
type EnumValue struct {
	Type string
	Name string
}

// ClassValue is a class literal given as a return descriptor.
type ClassValue struct {
	Desc string
}

// StringValue is a string constant.
type StringValue string

// IntValue is an int constant.
type IntValue int32

// NestedValue is a nested annotation.
type NestedValue Annotation

// ArrayValue is an array of values.
type ArrayValue []Value

func (v EnumValue) appendTo(c *Class, b []byte) []byte {
	b = append(b, 'e')
	b = u2(b, c.utf8(v.Type))
	return u2(b, c.utf8(v.Name))
}

func (v ClassValue) appendTo(c *Class, b []byte) []byte {
	return u2(append(b, 'c'), c.utf8(v.Desc))
}

func (v StringValue) appendTo(c *Class, b []byte) []byte {
	return u2(append(b, 's'), c.utf8(string(v)))
}

func (v IntValue) appendTo(c *Class, b []byte) []byte {
	return u2(append(b, 'I'), must(c.cf.Pool.AddInteger(int32(v))))
}

func (v NestedValue) appendTo(c *Class, b []byte) []byte {
	return Annotation(v).encode(c, append(b, '@'))
}

func (v ArrayValue) appendTo(c *Class, b []byte) []byte {
	b = u2(append(b, '['), uint16(len(v)))
	for _, e := range v {
		b = e.appendTo(c, b)
	}
	return b
}

func (a Annotation) encode(c *Class, b []byte) []byte {
	b = u2(b, c.utf8(a.Type))
	b = u2(b, uint16(len(a.Elements)))
	for _, e := range a.Elements {
		b = u2(b, c.utf8(e.Name))
		b = e.Value.appendTo(c, b)
	}
	return b
}

// Annotations builds a Runtime[In]VisibleAnnotations attribute.
func (c *Class) Annotations(attrName string, anns ...Annotation) *classfile.Attribute {
	data := u2(nil, uint16(len(anns)))
	for _, a := range anns {
		data = a.encode(c, data)
	}
	return c.Attribute(attrName, data)
}

// ParameterAnnotations builds a Runtime[In]VisibleParameterAnnotations
// attribute with one annotation list per parameter.
func (c *Class) ParameterAnnotations(attrName string, params ...[]Annotation) *classfile.Attribute {
	data := []byte{byte(len(params))}
	for _, anns := range params {
		data = u2(data, uint16(len(anns)))
		for _, a := range anns {
			data = a.encode(c, data)
		}
	}
	return c.Attribute(attrName, data)
}

// AnnotationDefault builds an AnnotationDefault attribute.
func (c *Class) AnnotationDefault(v Value) *classfile.Attribute {
	return c.Attribute("AnnotationDefault", v.appendTo(c, nil))
}

// TypeAnnotation is a type annotation. Target holds target_type followed by
// its target_info; Path holds the type_path entries (two bytes each).
type TypeAnnotation struct {
	Target []byte
	Path   []byte
	Annotation
}

// TypeAnnotations builds a Runtime[In]VisibleTypeAnnotations attribute.
func (c *Class) TypeAnnotations(attrName string, anns ...TypeAnnotation) *classfile.Attribute {
	data := u2(nil, uint16(len(anns)))
	for _, a := range anns {
		data = append(data, a.Target...)
		data = append(data, byte(len(a.Path)/2))
		data = append(data, a.Path...)
		data = a.Annotation.encode(c, data)
	}
	return c.Attribute(attrName, data)
}
