package xmlel_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emdiffract/trpx/xmlel"
)

func TestFindSelfClosing(t *testing.T) {
	elem, err := xmlel.Parse(
		`<Terse prolix_bits="16" signed="0" block="12" memory_size="42" number_of_values="100"/>`,
		"Terse",
	)
	require.NoError(t, err)

	assert.Equal(t, "Terse", elem.Name)
	assert.Equal(t, "16", elem.Attribute("prolix_bits"))
	assert.Equal(t, "0", elem.Attribute("signed"))
	assert.Equal(t, "12", elem.Attribute("block"))
	assert.Equal(t, "42", elem.Attribute("memory_size"))
	assert.Equal(t, "100", elem.Attribute("number_of_values"))
	assert.Equal(t, "", elem.Attribute("nope"))

	_, ok := elem.Lookup("number_of_frames")
	assert.False(t, ok)
}

func TestFindAttributeOrderIrrelevant(t *testing.T) {
	docs := []string{
		`<Terse block="8" prolix_bits="16"/>`,
		`<Terse prolix_bits="16" block="8"/>`,
		`<Terse  prolix_bits = "16"   block = "8" />`,
		"<Terse\n prolix_bits=\"16\"\n block=\"8\"/>",
	}
	for _, doc := range docs {
		elem, err := xmlel.Parse(doc, "Terse")
		require.NoError(t, err, doc)
		assert.Equal(t, "16", elem.Attribute("prolix_bits"), doc)
		assert.Equal(t, "8", elem.Attribute("block"), doc)
	}
}

func TestFindQuoteStyles(t *testing.T) {
	elem, err := xmlel.Parse(`<t a="x" b='y' c='has "quotes"'/>`, "t")
	require.NoError(t, err)
	assert.Equal(t, "x", elem.Attribute("a"))
	assert.Equal(t, "y", elem.Attribute("b"))
	assert.Equal(t, `has "quotes"`, elem.Attribute("c"))
}

func TestFindEntities(t *testing.T) {
	elem, err := xmlel.Parse(`<t msg="a &lt;b&gt; &amp; &quot;c&quot; &apos;d&apos;"/>`, "t")
	require.NoError(t, err)
	assert.Equal(t, `a <b> & "c" 'd'`, elem.Attribute("msg"))
}

func TestFindSkipsCommentsAndCDATA(t *testing.T) {
	doc := `
		<!-- a comment with a fake <Terse block="1"/> inside -->
		<?xml version="1.0"?>
		<Other><![CDATA[ <Terse block="2"/> ]]></Other>
		<Terse block="3"/>`
	elem, err := xmlel.Parse(doc, "Terse")
	require.NoError(t, err)
	assert.Equal(t, "3", elem.Attribute("block"))
}

func TestFindSkipsUnrelatedElements(t *testing.T) {
	doc := `<Header author="x > y"/><Terse block="5"/>`
	elem, err := xmlel.Parse(doc, "Terse")
	require.NoError(t, err)
	assert.Equal(t, "5", elem.Attribute("block"))
}

func TestFindContentElement(t *testing.T) {
	elem, err := xmlel.Parse(`<outer kind="box">some <inner/> text</outer>`, "outer")
	require.NoError(t, err)
	assert.Equal(t, "box", elem.Attribute("kind"))
	assert.Equal(t, "some <inner/> text", elem.Content)
}

func TestFindLeavesStreamAtBinaryBoundary(t *testing.T) {
	payload := []byte{0x00, 0x3E, 0x3C, 0xFF} // contains '>' and '<' bytes
	doc := append([]byte("  \n<Terse memory_size=\"4\"/>"), payload...)

	r := strings.NewReader(string(doc))
	elem, err := xmlel.Find(r, "Terse")
	require.NoError(t, err)
	assert.Equal(t, "4", elem.Attribute("memory_size"))

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, rest)
}

func TestFindPlainReader(t *testing.T) {
	// A reader that is not an io.ByteReader takes the one-byte-read path.
	r := io.MultiReader(strings.NewReader(`<Terse block="7"/>`), strings.NewReader("tail"))
	elem, err := xmlel.Find(r, "Terse")
	require.NoError(t, err)
	assert.Equal(t, "7", elem.Attribute("block"))

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(rest))
}

func TestFindMissingElement(t *testing.T) {
	_, err := xmlel.Parse(`<Other/>`, "Terse")
	assert.ErrorIs(t, err, xmlel.ErrNoElement)

	_, err = xmlel.Parse(``, "Terse")
	assert.ErrorIs(t, err, xmlel.ErrNoElement)
}

func TestFindMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unquoted value", `<Terse block=8/>`},
		{"unterminated element", `<Terse block="8"`},
		{"missing close tag", `<Terse block="8">content`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := xmlel.Parse(test.doc, "Terse")
			assert.Error(t, err)
		})
	}
}

func TestElementString(t *testing.T) {
	elem := &xmlel.Element{
		Name: "Terse",
		Attrs: []xmlel.Attr{
			{Name: "prolix_bits", Value: "16"},
			{Name: "signed", Value: "0"},
		},
	}
	assert.Equal(t, `<Terse prolix_bits="16" signed="0"/>`, elem.String())
}

func TestElementStringEscapes(t *testing.T) {
	elem := &xmlel.Element{Name: "t", Attrs: []xmlel.Attr{{Name: "a", Value: `x<y&"z"`}}}
	assert.Equal(t, `<t a="x&lt;y&amp;&quot;z&quot;"/>`, elem.String())

	parsed, err := xmlel.Parse(elem.String(), "t")
	require.NoError(t, err)
	assert.Equal(t, `x<y&"z"`, parsed.Attribute("a"))
}
