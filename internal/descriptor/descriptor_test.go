package descriptor

// Test Plan for Descriptor Rewriting:
// - Map rewrites class references in field and method descriptors
// - Map leaves primitive-only descriptors untouched
// - MapType handles plain internal names and array descriptors
// - ParseMethod splits parameters/return and rejects malformed input
// - ParameterSlots accounts for "this" and wide types
// - MapSignature rewrites class, method and field signatures
// - MapSignature leaves type variables and bounds intact
// - MapSignature remaps inner class segments through their binary names
// - MapSignature rejects malformed signatures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMapper(names map[string]string) ClassMapper {
	return func(name string) string {
		if mapped, ok := names[name]; ok {
			return mapped
		}
		return name
	}
}

func TestMap(t *testing.T) {
	t.Parallel()

	mapper := testMapper(map[string]string{
		"a": "com/example/Widget",
		"b": "com/example/Gadget",
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"primitive field", "I", "I"},
		{"class field", "La;", "Lcom/example/Widget;"},
		{"array field", "[[La;", "[[Lcom/example/Widget;"},
		{"unmapped class", "Ljava/lang/String;", "Ljava/lang/String;"},
		{"method", "(ILa;[Lb;)La;", "(ILcom/example/Widget;[Lcom/example/Gadget;)Lcom/example/Widget;"},
		{"void method", "()V", "()V"},
		{"class name containing L", "(LLa;)V", "(LLa;)V"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Map(tt.input, mapper))
		})
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	mapper := testMapper(map[string]string{"a": "com/example/Widget"})

	assert.Equal(t, "com/example/Widget", MapType("a", mapper))
	assert.Equal(t, "[Lcom/example/Widget;", MapType("[La;", mapper))
	assert.Equal(t, "[I", MapType("[I", mapper))
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	m, err := ParseMethod("(IJLa;[[DZ)Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "J", "La;", "[[D", "Z"}, m.Params)
	assert.Equal(t, "Ljava/lang/String;", m.Return)

	m, err = ParseMethod("()V")
	require.NoError(t, err)
	assert.Empty(t, m.Params)
	assert.Equal(t, "V", m.Return)

	for _, bad := range []string{"", "I", "(I", "(Q)V", "(La)V", "()", "()II"} {
		_, err := ParseMethod(bad)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}

func TestParameterSlots(t *testing.T) {
	t.Parallel()

	m, err := ParseMethod("(IJLa;DZ)V")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4, 5, 7}, m.ParameterSlots(false))
	assert.Equal(t, []int{0, 1, 3, 4, 6}, m.ParameterSlots(true))
}

func TestMapSignature(t *testing.T) {
	t.Parallel()

	mapper := testMapper(map[string]string{
		"a":   "com/example/Widget",
		"a$b": "com/example/Widget$Part",
		"c":   "com/example/Holder",
		"c$d": "com/example/Other",
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "field signature",
			input:    "Ljava/util/List<La;>;",
			expected: "Ljava/util/List<Lcom/example/Widget;>;",
		},
		{
			name:     "class signature with bounds",
			input:    "<T:La;U::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;Ljava/util/function/Supplier<TU;>;",
			expected: "<T:Lcom/example/Widget;U::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;Ljava/util/function/Supplier<TU;>;",
		},
		{
			name:     "method signature with throws",
			input:    "<E:Ljava/lang/Exception;>(La;[TE;I)Ljava/util/Map<+La;-La;>;^TE;^La;",
			expected: "<E:Ljava/lang/Exception;>(Lcom/example/Widget;[TE;I)Ljava/util/Map<+Lcom/example/Widget;-Lcom/example/Widget;>;^TE;^Lcom/example/Widget;",
		},
		{
			name:     "wildcard",
			input:    "Ljava/util/List<*>;",
			expected: "Ljava/util/List<*>;",
		},
		{
			name:     "inner class segment",
			input:    "La<Ljava/lang/String;>.b;",
			expected: "Lcom/example/Widget<Ljava/lang/String;>.Part;",
		},
		{
			name:     "inner class moved out of outer",
			input:    "Lc.d;",
			expected: "Lcom/example/Holder.Other;",
		},
		{
			name:     "type variable only",
			input:    "TT;",
			expected: "TT;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MapSignature(tt.input, mapper)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMapSignature_Malformed(t *testing.T) {
	t.Parallel()

	mapper := testMapper(nil)
	for _, bad := range []string{"La", "<T:La;", "(La;", "Ljava/util/List<La;", "L;"} {
		_, err := MapSignature(bad, mapper)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}
