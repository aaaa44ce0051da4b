package file

import (
	"strings"
)

// ContentDisposition builds a header value carrying an ASCII fallback filename
// and the exact name as an RFC 5987 filename* parameter.
func ContentDisposition(kind, filename string) string {
	var fallback strings.Builder
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			fallback.WriteByte('_')
		case r < 0x20 || r > 0x7e:
			fallback.WriteByte('_')
		default:
			fallback.WriteRune(r)
		}
	}
	return kind + `; filename="` + fallback.String() + `"; filename*=UTF-8''` + encodeExtValue(filename)
}

const upperhex = "0123456789ABCDEF"

func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
