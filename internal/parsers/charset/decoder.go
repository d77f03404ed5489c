package charset

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingISO88591    Encoding = "iso-8859-1"
)

var declarationRe = regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["'][^?]*\?>`)

// DetectEncoding detects the encoding of an XML part from its BOM or declaration.
// Office packages are UTF-8 unless they say otherwise.
func DetectEncoding(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return EncodingUTF16BE
	}

	head := data[:min(200, len(data))]
	if match := declarationRe.FindSubmatch(head); len(match) > 1 {
		switch strings.ToLower(string(match[1])) {
		case "windows-1252", "cp1252":
			return EncodingWindows1252
		case "iso-8859-1", "latin1":
			return EncodingISO88591
		}
	}
	return EncodingUTF8
}

// DecodeXML converts an XML part to a UTF-8 string, stripping any byte order mark
func DecodeXML(data []byte) (string, error) {
	return Decode(data, DetectEncoding(data))
}

// Decode converts a byte buffer from the specified encoding to a UTF-8 string
func Decode(data []byte, enc Encoding) (string, error) {
	var decoder encoding.Encoding

	switch enc {
	case EncodingUTF8, "":
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid utf-8 content")
		}
		return string(data), nil
	case EncodingUTF16LE:
		decoder = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case EncodingUTF16BE:
		decoder = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case EncodingWindows1252:
		decoder = charmap.Windows1252
	case EncodingISO88591:
		decoder = charmap.ISO8859_1
	default:
		return "", fmt.Errorf("unsupported encoding: %s", enc)
	}

	result, _, err := transform.Bytes(decoder.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s content: %w", enc, err)
	}
	return string(result), nil
}
