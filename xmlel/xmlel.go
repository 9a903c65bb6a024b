// Package xmlel scans a stream for a single XML element and parses its
// attributes. It exists for the self-describing header that prefixes a TRPX
// payload: a container file is an ASCII element followed immediately by
// binary data, so the scanner consumes the stream exactly through the end
// of the element and not a byte further.
//
// This is deliberately not a general XML processor. It skips comments,
// CDATA sections, processing instructions and unrelated elements while
// searching; it understands single- and double-quoted attributes in any
// order and the five predefined entities. Namespaces, DTDs and nested
// occurrences of the wanted tag are out of scope.
package xmlel

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNoElement is returned when the stream ends without containing an
	// element with the requested tag.
	ErrNoElement = errors.New("xmlel: element not found")

	// ErrMalformed is returned when the requested element is found but
	// cannot be parsed.
	ErrMalformed = errors.New("xmlel: malformed element")
)

// Attr is a single name="value" attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a parsed XML element: its tag name, attributes in document
// order, and raw inner content for non-self-closing elements.
type Element struct {
	Name    string
	Attrs   []Attr
	Content string
}

// Attribute returns the value of the named attribute, or the empty string
// if the attribute is absent.
func (e *Element) Attribute(name string) string {
	v, _ := e.Lookup(name)
	return v
}

// Lookup returns the value of the named attribute and whether it exists.
func (e *Element) Lookup(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// String renders the element. Self-closing form is used when the element
// has no content.
func (e *Element) String() string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(e.Name)
	for _, a := range e.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		sb.WriteString(Escape(a.Value))
		sb.WriteByte('"')
	}
	if e.Content == "" {
		sb.WriteString("/>")
		return sb.String()
	}
	sb.WriteByte('>')
	sb.WriteString(e.Content)
	sb.WriteString("</")
	sb.WriteString(e.Name)
	sb.WriteByte('>')
	return sb.String()
}

// Escape replaces the five predefined entities in s.
func Escape(s string) string {
	return entityEscaper.Replace(s)
}

// Unescape expands the five predefined entities in s. Unknown entities are
// left untouched.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return entityUnescaper.Replace(s)
}

var entityEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

var entityUnescaper = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'",
)

// Find scans r for the first element named tag and parses it. The reader is
// left positioned at the first byte after the element, so binary data that
// follows the element can be read next. Reads are byte-at-a-time precisely
// so that no trailing bytes are buffered away from the caller.
func Find(r io.Reader, tag string) (*Element, error) {
	br := byteReaderFor(r)
	for {
		if err := skipTo(br, '<'); err != nil {
			return nil, ErrNoElement
		}
		c, err := br.ReadByte()
		if err != nil {
			return nil, ErrNoElement
		}
		switch c {
		case '!':
			if err := skipDeclaration(br); err != nil {
				return nil, ErrNoElement
			}
			continue
		case '?', '/':
			if err := skipTag(br); err != nil {
				return nil, ErrNoElement
			}
			continue
		}

		name := []byte{c}
		for {
			c, err = br.ReadByte()
			if err != nil {
				return nil, ErrNoElement
			}
			if isSpace(c) || c == '>' || c == '/' {
				break
			}
			name = append(name, c)
		}
		if string(name) != tag {
			if c != '>' {
				if err := skipTag(br); err != nil {
					return nil, ErrNoElement
				}
			}
			continue
		}
		return parseElement(br, tag, c)
	}
}

// Parse is a convenience wrapper around Find for in-memory documents.
func Parse(doc, tag string) (*Element, error) {
	return Find(strings.NewReader(doc), tag)
}

// parseElement parses attributes and content of the matched tag. delim is
// the byte that terminated the tag name.
func parseElement(br io.ByteReader, tag string, delim byte) (*Element, error) {
	elem := &Element{Name: tag}

	c := delim
	var err error
	for c != '>' {
		if c == '/' {
			if c, err = br.ReadByte(); err != nil || c != '>' {
				return nil, fmt.Errorf("%w: expected '>' after '/' in <%s>", ErrMalformed, tag)
			}
			return elem, nil
		}
		if isSpace(c) {
			if c, err = br.ReadByte(); err != nil {
				return nil, fmt.Errorf("%w: unterminated <%s>", ErrMalformed, tag)
			}
			continue
		}

		attr, next, err := parseAttr(br, c)
		if err != nil {
			return nil, fmt.Errorf("%w: bad attribute in <%s>: %v", ErrMalformed, tag, err)
		}
		elem.Attrs = append(elem.Attrs, attr)
		c = next
	}

	// Content element: accumulate until the matching close tag. Nested
	// occurrences of the same tag are not tracked.
	closing := "</" + tag
	var content []byte
	for {
		c, err = br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: missing %s>", ErrMalformed, closing)
		}
		if c == '>' {
			if idx := strings.LastIndex(string(content), closing); idx >= 0 &&
				strings.TrimSpace(string(content[idx+len(closing):])) == "" {
				elem.Content = string(content[:idx])
				return elem, nil
			}
		}
		content = append(content, c)
	}
}

// parseAttr parses one name="value" attribute whose first name byte is c.
// It returns the attribute and the first byte after the closing quote.
func parseAttr(br io.ByteReader, c byte) (Attr, byte, error) {
	var name []byte
	for c != '=' && !isSpace(c) {
		name = append(name, c)
		var err error
		if c, err = br.ReadByte(); err != nil {
			return Attr{}, 0, err
		}
	}
	for c != '=' {
		var err error
		if c, err = br.ReadByte(); err != nil {
			return Attr{}, 0, err
		}
		if !isSpace(c) && c != '=' {
			return Attr{}, 0, fmt.Errorf("expected '=' after %q", name)
		}
	}

	quote, err := nextNonSpace(br)
	if err != nil {
		return Attr{}, 0, err
	}
	if quote != '"' && quote != '\'' {
		return Attr{}, 0, fmt.Errorf("attribute %q value is not quoted", name)
	}

	var value []byte
	for {
		c, err = br.ReadByte()
		if err != nil {
			return Attr{}, 0, err
		}
		if c == quote {
			break
		}
		value = append(value, c)
	}

	next, err := br.ReadByte()
	if err != nil {
		return Attr{}, 0, err
	}
	return Attr{Name: string(name), Value: Unescape(string(value))}, next, nil
}

// skipDeclaration consumes a construct that began "<!": a comment, a CDATA
// section, or any other declaration (skipped to the next '>').
func skipDeclaration(br io.ByteReader) error {
	c, err := br.ReadByte()
	if err != nil {
		return err
	}
	switch c {
	case '-':
		if c, err = br.ReadByte(); err != nil {
			return err
		}
		if c != '-' {
			return skipTo(br, '>')
		}
		return skipPast(br, "-->")
	case '[':
		// Assume CDATA; any other "<![" construct ends at "]]>" too rarely
		// to matter for descriptor headers.
		return skipPast(br, "]]>")
	default:
		return skipTo(br, '>')
	}
}

// skipTag consumes the remainder of a tag, honoring quoted attribute values
// that may contain '>'.
func skipTag(br io.ByteReader) error {
	var quote byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return nil
		}
	}
}

func skipTo(br io.ByteReader, want byte) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if c == want {
			return nil
		}
	}
}

func skipPast(br io.ByteReader, terminator string) error {
	matched := 0
	for matched < len(terminator) {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if c == terminator[matched] {
			matched++
		} else if c == terminator[0] {
			matched = 1
		} else {
			matched = 0
		}
	}
	return nil
}

func nextNonSpace(br io.ByteReader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !isSpace(c) {
			return c, nil
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// byteReaderFor returns r as an io.ByteReader without adding lookahead
// buffering, so the stream position stays exact.
func byteReaderFor(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &oneByteReader{r: r}
}

type oneByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (o *oneByteReader) ReadByte() (byte, error) {
	for {
		n, err := o.r.Read(o.buf[:])
		if n == 1 {
			return o.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
