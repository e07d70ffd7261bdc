package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/stchris/pstexplorer/internal/textutil"
)

// ErrCompressedRTF reports a PidTagRtfCompressed value that cannot be
// decompressed.
var ErrCompressedRTF = errors.New("invalid compressed RTF")

const (
	rtfHeaderSize   = 16
	rtfCompressed   = 0x75465A4C // "LZFu"
	rtfUncompressed = 0x414C454D // "MELA"
	rtfDictSize     = 4096
)

// rtfPrebuffer seeds the LZFu dictionary.
const rtfPrebuffer = "{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
	"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript \\fdecor MS Sans Serif" +
	"SymbolArialTimes New RomanCourier{\\colortbl\\red0\\green0\\blue0\r\n" +
	"\\par \\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx"

// DecompressRTF expands a compressed RTF stream (LZFu or stored).
func DecompressRTF(data []byte) ([]byte, error) {
	if len(data) < rtfHeaderSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrCompressedRTF, len(data))
	}
	compSize := int(binary.LittleEndian.Uint32(data[0:]))
	rawSize := int(binary.LittleEndian.Uint32(data[4:]))
	magic := binary.LittleEndian.Uint32(data[8:])
	crc := binary.LittleEndian.Uint32(data[12:])

	body := data[rtfHeaderSize:]
	// compSize counts everything after itself.
	if n := compSize - (rtfHeaderSize - 4); n >= 0 && n < len(body) {
		body = body[:n]
	}

	switch magic {
	case rtfUncompressed:
		if rawSize < len(body) {
			body = body[:rawSize]
		}
		return append([]byte(nil), body...), nil
	case rtfCompressed:
	default:
		return nil, fmt.Errorf("%w: unknown type %#x", ErrCompressedRTF, magic)
	}
	if got := rtfCRC(body); got != crc {
		return nil, fmt.Errorf("%w: crc %#x, want %#x", ErrCompressedRTF, got, crc)
	}

	var dict [rtfDictSize]byte
	wp := copy(dict[:], rtfPrebuffer)
	out := make([]byte, 0, min(rawSize, 8*len(body)))
	put := func(c byte) {
		out = append(out, c)
		dict[wp] = c
		wp = (wp + 1) % rtfDictSize
	}

	for i := 0; i < len(body); {
		ctrl := body[i]
		i++
		for bit := 0; bit < 8; bit++ {
			if ctrl&(1<<bit) == 0 {
				if i >= len(body) {
					return out, nil
				}
				put(body[i])
				i++
				continue
			}
			if i+1 >= len(body) {
				return nil, fmt.Errorf("%w: truncated reference at %d", ErrCompressedRTF, i)
			}
			ref := int(body[i])<<8 | int(body[i+1])
			i += 2
			off, n := ref>>4, ref&0xF+2
			if off == wp {
				return out, nil
			}
			for k := 0; k < n; k++ {
				put(dict[(off+k)%rtfDictSize])
			}
		}
	}
	return out, nil
}

// rtfCRC is CRC-32 without the usual pre- and post-inversion.
func rtfCRC(b []byte) uint32 {
	var crc uint32
	for _, c := range b {
		crc = crc32.IEEETable[byte(crc)^c] ^ crc>>8
	}
	return crc
}

// rtfSkipped are destinations whose text is not part of the document body.
var rtfSkipped = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"headerl": true, "headerr": true, "headerf": true, "footerl": true,
	"footerr": true, "footerf": true, "listtable": true,
	"listoverridetable": true, "rsidtbl": true, "generator": true,
	"xmlnstbl": true, "themedata": true, "colorschememapping": true,
	"latentstyles": true, "datastore": true, "filetbl": true,
	"revtbl": true, "fldinst": true, "mmathPr": true,
}

var rtfSymbols = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n", "page": "\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"emdash": "—", "endash": "–", "bullet": "•",
	"lquote": "‘", "rquote": "’",
	"ldblquote": "“", "rdblquote": "”",
}

type rtfGroup struct {
	skip    bool
	htmlrtf bool
	uc      int
}

type rtfParser struct {
	src      []byte
	pos      int
	codepage int
	fromHTML bool
	out      strings.Builder
	pending  []byte
	skipN    int
	high     rune
}

// RTFToText reduces an RTF document to plain text. Documents that
// encapsulate HTML (\fromhtml1) are de-encapsulated and stripped.
func RTFToText(src []byte) string {
	p := &rtfParser{src: src, codepage: textutil.DefaultCodepage}
	p.run()
	text := p.out.String()
	if p.fromHTML {
		return StripHTML(text)
	}
	return cleanText(text)
}

func (p *rtfParser) visible(g rtfGroup) bool { return !g.skip && !g.htmlrtf }

// emitByte queues a codepage byte for decoding.
func (p *rtfParser) emitByte(g rtfGroup, c byte) {
	if p.skipN > 0 {
		p.skipN--
		return
	}
	if p.visible(g) {
		p.pending = append(p.pending, c)
	}
}

func (p *rtfParser) emit(g rtfGroup, s string) {
	if p.visible(g) {
		p.flush()
		p.out.WriteString(s)
	}
}

func (p *rtfParser) flush() {
	if len(p.pending) > 0 {
		p.out.WriteString(textutil.DecodeCodepage(p.pending, p.codepage))
		p.pending = p.pending[:0]
	}
}

func (p *rtfParser) run() {
	cur := rtfGroup{uc: 1}
	var stack []rtfGroup
	starred := false

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '{':
			stack = append(stack, cur)
		case '}':
			if len(stack) > 0 {
				cur = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
			starred = false
		case '\r', '\n':
		case '\\':
			if p.pos >= len(p.src) {
				break
			}
			c = p.src[p.pos]
			if isASCIILetter(c) {
				word, param, hasParam := p.controlWord()
				p.control(&cur, word, param, hasParam, starred)
				starred = false
				continue
			}
			p.pos++
			switch c {
			case '\'':
				if p.pos+2 <= len(p.src) {
					if v, err := strconv.ParseUint(string(p.src[p.pos:p.pos+2]), 16, 8); err == nil {
						p.emitByte(cur, byte(v))
					}
					p.pos += 2
				}
			case '\\', '{', '}':
				p.emitByte(cur, c)
			case '~':
				p.emit(cur, " ")
			case '_':
				p.emit(cur, "-")
			case '*':
				starred = true
			case '\r', '\n':
				p.emit(cur, "\n")
			}
		default:
			p.emitByte(cur, c)
		}
	}
	p.flush()
}

func (p *rtfParser) controlWord() (word string, param int, hasParam bool) {
	start := p.pos
	for p.pos < len(p.src) && isASCIILetter(p.src[p.pos]) {
		p.pos++
	}
	word = string(p.src[start:p.pos])
	numStart := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos > numStart {
		if v, err := strconv.Atoi(string(p.src[numStart:p.pos])); err == nil {
			param, hasParam = v, true
		}
	}
	if p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	return word, param, hasParam
}

func (p *rtfParser) control(g *rtfGroup, word string, param int, hasParam, starred bool) {
	if starred {
		// Encapsulated HTML keeps its tags in \*\htmltag destinations.
		if p.fromHTML && strings.HasPrefix(word, "htmltag") {
			return
		}
		g.skip = true
		return
	}
	if rtfSkipped[word] {
		g.skip = true
		return
	}
	if s, ok := rtfSymbols[word]; ok {
		p.emit(*g, s)
		return
	}
	switch word {
	case "ansicpg":
		if hasParam && param > 0 {
			p.flush()
			p.codepage = param
		}
	case "fromhtml":
		p.fromHTML = true
	case "htmlrtf":
		g.htmlrtf = !hasParam || param != 0
	case "uc":
		if hasParam && param >= 0 {
			g.uc = param
		}
	case "u":
		if !hasParam {
			return
		}
		if param < 0 {
			param += 0x10000
		}
		r := rune(param)
		p.skipN = g.uc
		// Characters outside the BMP arrive as two \u surrogate halves.
		switch {
		case r >= 0xD800 && r < 0xDC00:
			p.high = r
			return
		case r >= 0xDC00 && r < 0xE000 && p.high != 0:
			r = utf16.DecodeRune(p.high, r)
		}
		p.high = 0
		p.emit(*g, string(r))
	}
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// cleanText trims trailing blanks from lines and collapses runs of blank
// lines.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := 0
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
