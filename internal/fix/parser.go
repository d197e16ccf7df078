// Package fix implements the small tag=value wire format the exchange
// front door speaks: fields are "tag=value" pairs separated by the SOH
// byte (0x01), the same convention real FIX uses, pared down to exactly
// the tags this exchange needs. It is not a general FIX engine — no
// session layer, no sequencing, no logon handshake.
package fix

import (
	"bytes"
	"errors"
	"strconv"
)

// SOH is the field separator byte.
const SOH = 0x01

var (
	// ErrMessageTooShort means the buffer ran out before a field's value
	// could be read.
	ErrMessageTooShort = errors.New("fix: message too short")
	// ErrMissingField means a required tag was never seen while decoding
	// a message.
	ErrMissingField = errors.New("fix: missing required field")
	// ErrUnknownTag means a tag number did not parse as an integer. The
	// server also returns it for a header whose MsgType it does not handle.
	ErrUnknownTag = errors.New("fix: malformed tag")
	// ErrInvalidEnum means a field's value did not match any of the
	// enumeration values the field permits (e.g. Side, OrdType).
	ErrInvalidEnum = errors.New("fix: invalid enum value")
)

// Field is one decoded tag=value pair.
type Field struct {
	Tag   int
	Value string
}

// Parser walks a byte slice pulling SOH-delimited tag=value fields off
// the front, the same shape as the reference implementation's
// istream-based field-at-a-time reader.
type Parser struct {
	buf []byte
}

// NewParser wraps buf for reading. buf is not copied or retained beyond
// the lifetime of the parsing calls made on it.
func NewParser(buf []byte) *Parser {
	return &Parser{buf: buf}
}

// Done reports whether every byte of the buffer has been consumed.
func (p *Parser) Done() bool { return len(p.buf) == 0 }

// NextField consumes and returns the next tag=value field, or an error if
// the remaining buffer is malformed or empty.
func (p *Parser) NextField() (Field, error) {
	if len(p.buf) == 0 {
		return Field{}, ErrMessageTooShort
	}

	eq := bytes.IndexByte(p.buf, '=')
	if eq < 0 {
		return Field{}, ErrMessageTooShort
	}
	tag, err := strconv.Atoi(string(p.buf[:eq]))
	if err != nil {
		return Field{}, ErrUnknownTag
	}

	rest := p.buf[eq+1:]
	end := bytes.IndexByte(rest, SOH)
	if end < 0 {
		// Reference parser tolerates a missing trailing SOH only at
		// end-of-stream; mirror that for the last field in a buffer.
		p.buf = nil
		return Field{Tag: tag, Value: string(rest)}, nil
	}

	p.buf = rest[end+1:]
	return Field{Tag: tag, Value: string(rest[:end])}, nil
}

// Fields decodes every remaining field in the buffer.
func (p *Parser) Fields() ([]Field, error) {
	var fields []Field
	for !p.Done() {
		f, err := p.NextField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// EncodeField appends a tag=value field, SOH-terminated, to buf.
func EncodeField(buf []byte, tag int, value string) []byte {
	buf = strconv.AppendInt(buf, int64(tag), 10)
	buf = append(buf, '=')
	buf = append(buf, value...)
	buf = append(buf, SOH)
	return buf
}
