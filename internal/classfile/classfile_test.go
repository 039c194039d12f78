package classfile_test

import (
	"errors"
	"testing"

	"github.com/mvp-joe/project-remapper/internal/classfile"
	"github.com/mvp-joe/project-remapper/internal/classfile/classtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for class file parsing:
// - Parse followed by Bytes reproduces the input exactly
// - Header accessors resolve this, super and interfaces
// - ReadHeader returns the same header without parsing members
// - Modified UTF-8 round-trips NUL, two-byte, three-byte and supplementary characters
// - Long entries occupy two pool slots
// - Pool Add* helpers deduplicate existing entries
// - MemberRef resolves owner, name and descriptor
// - ParseCode decodes and re-encodes a Code attribute
// - Parse rejects bad magic, truncation, unknown tags and trailing bytes

func sampleClass() []byte {
	c := classtest.New("com/example/Widget", "java/lang/Object", "java/lang/Runnable", "java/io/Serializable")
	body := classtest.Concat(
		[]byte{classtest.OpAload0},
		c.Invoke(classtest.OpInvokeVirtual, "com/example/Widget", "helper", "()V"),
		[]byte{classtest.OpReturn},
	)
	c.Field(classfile.AccPrivate, "count", "I")
	c.Method(classfile.AccPublic, "run", "()V",
		c.Code(1, 1, body, c.LocalVariableTable(classtest.LocalVar{Index: 0, Name: "this", Desc: "Lcom/example/Widget;"})))
	c.Attr(c.Signature("Ljava/lang/Object;Ljava/lang/Runnable;"))
	_, err := c.Pool().AddLong(1 << 40)
	if err != nil {
		panic(err)
	}
	return c.Bytes()
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	data := sampleClass()
	cf, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, data, cf.Bytes())
}

func TestParse_Header(t *testing.T) {
	t.Parallel()

	cf, err := classfile.Parse(sampleClass())
	require.NoError(t, err)

	name, err := cf.Name()
	require.NoError(t, err)
	assert.Equal(t, "com/example/Widget", name)

	super, err := cf.SuperName()
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", super)

	ifaces, err := cf.InterfaceNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"java/lang/Runnable", "java/io/Serializable"}, ifaces)

	require.Len(t, cf.Methods, 1)
	methodName, err := cf.Pool.Utf8(cf.Methods[0].Name)
	require.NoError(t, err)
	assert.Equal(t, "run", methodName)

	h, err := classfile.ReadHeader(sampleClass())
	require.NoError(t, err)
	assert.Equal(t, "com/example/Widget", h.Name)
	assert.Equal(t, "java/lang/Object", h.Super)
	assert.Equal(t, ifaces, h.Interfaces)
}

func TestReadHeader_NoSuper(t *testing.T) {
	t.Parallel()

	h, err := classfile.ReadHeader(classtest.New("java/lang/Object", "").Bytes())
	require.NoError(t, err)
	assert.Empty(t, h.Super)
}

func TestModifiedUTF8(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"plain", "nul\x00byte", "é", "日本", "emoji 😀"} {
		c := classtest.New("A", "java/lang/Object")
		c.Field(0, s, "I")
		data := c.Bytes()

		cf, err := classfile.Parse(data)
		require.NoError(t, err, "input %q", s)
		name, err := cf.Pool.Utf8(cf.Fields[0].Name)
		require.NoError(t, err)
		assert.Equal(t, s, name)
		assert.Equal(t, data, cf.Bytes())
	}
}

func TestModifiedUTF8_NulIsTwoBytes(t *testing.T) {
	t.Parallel()

	c := classtest.New("A", "java/lang/Object")
	c.Field(0, "\x00", "I")
	data := c.Bytes()
	assert.Contains(t, string(data), "\x00\x02\xC0\x80")
}

func TestPool_AddDeduplicates(t *testing.T) {
	t.Parallel()

	cf, err := classfile.Parse(sampleClass())
	require.NoError(t, err)
	before := cf.Pool.Len()

	idx, err := cf.Pool.AddUtf8("run")
	require.NoError(t, err)
	assert.Equal(t, cf.Methods[0].Name, idx)

	ref, err := cf.Pool.AddMemberRef(classfile.TagMethodref, "com/example/Widget", "helper", "()V")
	require.NoError(t, err)
	assert.Equal(t, before, cf.Pool.Len())

	owner, name, desc, err := cf.Pool.MemberRef(ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"com/example/Widget", "helper", "()V"}, []string{owner, name, desc})

	_, err = cf.Pool.AddNameAndType("helper", "(I)V")
	require.NoError(t, err)
	assert.Equal(t, before+2, cf.Pool.Len(), "one new Utf8 and one new NameAndType")
}

func TestPool_LongTakesTwoSlots(t *testing.T) {
	t.Parallel()

	p := classfile.NewPool()
	idx, err := p.AddLong(42)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), idx)
	assert.Equal(t, 3, p.Len())

	_, err = p.Get(2)
	assert.True(t, errors.Is(err, classfile.ErrMalformed), "second slot is unusable")

	next, err := p.AddUtf8("x")
	require.NoError(t, err)
	assert.Equal(t, uint16(3), next)
}

func TestParseCode(t *testing.T) {
	t.Parallel()

	cf, err := classfile.Parse(sampleClass())
	require.NoError(t, err)

	attr := cf.Methods[0].Attributes[0]
	name, err := cf.AttributeName(attr)
	require.NoError(t, err)
	require.Equal(t, "Code", name)

	code, err := classfile.ParseCode(attr.Data)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), code.MaxStack)
	assert.Len(t, code.Bytecode, 5)
	require.Len(t, code.Attributes, 1)
	assert.Equal(t, attr.Data, code.Bytes())
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	valid := sampleClass()

	unknownTag := append([]byte(nil), valid[:10]...)
	unknownTag = append(unknownTag, 2) // tag 2 is unassigned
	unknownTag = append(unknownTag, valid[11:]...)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte{0xCA, 0xFE, 0xBA, 0xBF}, valid[4:]...)},
		{"truncated", valid[:len(valid)-3]},
		{"unknown tag", unknownTag},
		{"trailing bytes", append(append([]byte(nil), valid...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := classfile.Parse(tt.data)
			assert.True(t, errors.Is(err, classfile.ErrMalformed), "got %v", err)
		})
	}
}
