package ner

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// byteOrderMark pairs a BOM signature with the encoding it announces.
// Detection is a fixed lookup over this table, longest signature first,
// so the UTF-32LE mark (FF FE 00 00) wins over the UTF-16LE prefix it
// shares.
type byteOrderMark struct {
	name string
	bom  []byte
	enc  encoding.Encoding
}

var byteOrderMarks = []byteOrderMark{
	{"utf-32be", []byte{0x00, 0x00, 0xFE, 0xFF}, utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)},
	{"utf-32le", []byte{0xFF, 0xFE, 0x00, 0x00}, utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)},
	{"utf-8", []byte{0xEF, 0xBB, 0xBF}, unicode.UTF8},
	{"utf-16be", []byte{0xFE, 0xFF}, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{"utf-16le", []byte{0xFF, 0xFE}, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
}

const maxBOMLen = 4

// detectEncoding peeks at the lead bytes of stream, consumes a byte-order
// mark if one is present, and returns a buffered reader positioned after
// the mark together with the detected encoding. Streams without a mark
// default to UTF-8. Bytes beyond the mark are never consumed.
func detectEncoding(stream io.Reader) (*bufio.Reader, encoding.Encoding, string, error) {
	br := bufio.NewReader(stream)

	lead, err := br.Peek(maxBOMLen)
	if err != nil && err != io.EOF {
		return nil, nil, "", wrapError(CodeIOError, err, "reading stream prefix")
	}

	for _, mark := range byteOrderMarks {
		if bytes.HasPrefix(lead, mark.bom) {
			if _, err := br.Discard(len(mark.bom)); err != nil {
				return nil, nil, "", wrapError(CodeIOError, err, "consuming byte-order mark")
			}
			return br, mark.enc, mark.name, nil
		}
	}

	return br, unicode.UTF8, "utf-8", nil
}
