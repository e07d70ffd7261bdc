package testutil

import "bytes"

// CodepageSample is an 8-bit string as a PST would store it under a given
// Windows codepage, with its expected UTF-8 text.
type CodepageSample struct {
	Name     string
	Codepage int
	Bytes    []byte
	Text     string
}

var codepageSamples = []CodepageSample{
	{"cp1252 smart quote", 1252, []byte("Rand\x92s Opponent"), "Rand’s Opponent"},
	{"cp1252 en dash", 1252, []byte("2020 \x96 2024"), "2020 – 2024"},
	{"cp1252 double quotes", 1252, []byte("\x93Hello\x94"), "“Hello”"},
	{"cp1252 euro", 1252, []byte("Price: \x80100"), "Price: €100"},
	{"latin1 acute", 28591, []byte("Mir\xf3 - Picasso"), "Miró - Picasso"},
	{"latin1 umlaut", 28591, []byte("M\xfcnchen"), "München"},
	{"cp1250 polish", 1250, []byte("Za\xbf\xf3\xb3\xe6"), "Zażółć"},
	{"cp1251 cyrillic", 1251, []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}, "Привет"},
	{"cp932 konnichiwa", 932, []byte{0x82, 0xb1, 0x82, 0xf1, 0x82, 0xc9, 0x82, 0xbf, 0x82, 0xcd}, "こんにちは"},
	{"cp936 nihao", 936, []byte{0xc4, 0xe3, 0xba, 0xc3}, "你好"},
	{"cp950 nihao", 950, []byte{0xa7, 0x41, 0xa6, 0x6e}, "你好"},
	{"cp949 annyeong", 949, []byte{0xbe, 0xc8, 0xb3, 0xe7}, "안녕"},
}

// CodepageSamples returns fresh copies of the codepage samples; tests may
// mutate the byte slices freely.
func CodepageSamples() []CodepageSample {
	out := make([]CodepageSample, len(codepageSamples))
	for i, s := range codepageSamples {
		s.Bytes = bytes.Clone(s.Bytes)
		out[i] = s
	}
	return out
}

// Long samples in Asian multi-byte charsets. They are long enough for
// charset detection to settle on the right encoding.
var (
	ShiftJISLong = []byte{
		0x93, 0xfa, 0x96, 0x7b, 0x8c, 0xea, 0x82, 0xcc, 0x83, 0x65, 0x83, 0x4c,
		0x83, 0x58, 0x83, 0x67, 0x83, 0x54, 0x83, 0x93, 0x83, 0x76, 0x83, 0x8b,
		0x82, 0xc5, 0x82, 0xb7, 0x81, 0x42, 0x82, 0xb1, 0x82, 0xea, 0x82, 0xcd,
		0x95, 0xb6, 0x8e, 0x9a, 0x89, 0xbb, 0x82, 0xaf, 0x82, 0xcc, 0x83, 0x65,
		0x83, 0x58, 0x83, 0x67, 0x82, 0xc9, 0x8e, 0x67, 0x97, 0x70, 0x82, 0xb3,
		0x82, 0xea, 0x82, 0xdc, 0x82, 0xb7, 0x81, 0x42,
	}
	GBKLong = []byte{
		0xd5, 0xe2, 0xca, 0xc7, 0xd2, 0xbb, 0xb8, 0xf6, 0xd6, 0xd0, 0xce, 0xc4,
		0xce, 0xc4, 0xb1, 0xbe, 0xca, 0xbe, 0xc0, 0xfd, 0xa3, 0xac, 0xd3, 0xc3,
		0xd3, 0xda, 0xb2, 0xe2, 0xca, 0xd4, 0xd7, 0xd6, 0xb7, 0xfb, 0xb1, 0xe0,
		0xc2, 0xeb, 0xbc, 0xec, 0xb2, 0xe2, 0xb9, 0xa6, 0xc4, 0xdc, 0xa1, 0xa3,
	}
	EUCKRLong = []byte{
		0xc7, 0xd1, 0xb1, 0xdb, 0x20, 0xc5, 0xd8, 0xbd, 0xba, 0xc6, 0xae, 0x20,
		0xbb, 0xf9, 0xc7, 0xc3, 0xc0, 0xd4, 0xb4, 0xcf, 0xb4, 0xd9, 0x2e, 0x20,
		0xc0, 0xce, 0xc4, 0xda, 0xb5, 0xf9, 0x20, 0xb0, 0xa8, 0xc1, 0xf6, 0x20,
		0xc5, 0xd7, 0xbd, 0xba, 0xc6, 0xae, 0xbf, 0xeb, 0xc0, 0xd4, 0xb4, 0xcf,
		0xb4, 0xd9, 0x2e,
	}
)
