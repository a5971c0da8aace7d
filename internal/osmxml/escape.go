package osmxml

import "strings"

var entities = []string{"&apos;", "&amp;", "&lt;", "&gt;", "&quot;"}

// escape prepares text for an attribute value: a bare "&" becomes "and",
// "'" becomes &apos;, '"' is dropped and markup characters are escaped.
// Entities already present in the value are kept as is.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '&':
			if entity := entityAt(s[i:]); entity != "" {
				b.WriteString(entity)
				i += len(entity) - 1
				continue
			}
			b.WriteString("and")
		case '\'':
			b.WriteString("&apos;")
		case '"':
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\n':
			b.WriteString("&#10;")
		case '\r':
			b.WriteString("&#13;")
		case '\t':
			b.WriteString("&#9;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func entityAt(s string) string {
	for _, e := range entities {
		if strings.HasPrefix(s, e) {
			return e
		}
	}
	return ""
}

// Normalize maps a tag value to the form it has after a write and read back.
func Normalize(s string) string {
	out := escape(s)
	r := strings.NewReplacer("&apos;", "'", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`,
		"&#10;", "\n", "&#13;", "\r", "&#9;", "\t")
	return r.Replace(out)
}
