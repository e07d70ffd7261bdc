package record

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "just text", "just text"},
		{"inline tags", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\n\ntwo"},
		{"line breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"source newlines collapse", "<p>a\nwrapped\r\nline</p>", "a wrapped line"},
		{"entities", "Fish &amp; Chips &lt;3 &quot;yum&quot;", `Fish & Chips <3 "yum"`},
		{"nbsp", "a&nbsp;&nbsp;b", "a b"},
		{"script and style", "<style>p{color:red}</style>x<script>alert(1)</script>y", "xy"},
		{"head", "<html><head><title>T</title></head><body>Body</body></html>", "Body"},
		{"comments", "a<!-- hidden\n-->b", "ab"},
		{"blank lines", "<p>a</p><br><br><br><p>b</p>", "a\n\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
