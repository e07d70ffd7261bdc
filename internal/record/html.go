package record

import (
	"html"
	"regexp"
	"strings"
)

// Block tags become line breaks when stripped.
var blockTagRe = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|ul|ol|dl|dt|dd)\b[^>]*>`)

// Elements whose content is dropped along with the tags. Go's regexp has no
// backreferences, so each needs its own pattern.
var (
	scriptTagRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTagRe    = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	commentTagRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML reduces an HTML body to readable text: markup is removed,
// entities decoded, source line breaks collapse to spaces and block
// elements become line breaks. Runs of blank lines are kept to one.
func StripHTML(raw string) string {
	text := scriptTagRe.ReplaceAllString(raw, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = headTagRe.ReplaceAllString(text, "")
	text = commentTagRe.ReplaceAllString(text, "")

	// Whitespace in text nodes is not significant.
	text = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ").Replace(text)

	text = blockTagRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\u00A0", " ")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
