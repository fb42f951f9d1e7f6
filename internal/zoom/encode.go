package zoom

// EncodeMeetingUUID percent-encodes a meeting identifier for use as a URL
// path segment.
//
// Zoom meeting UUIDs are opaque base64-like tokens that may start with "/"
// or contain "//". The API requires those to be double encoded (the encoded
// form encoded once more), otherwise the path is misrouted. All other
// identifiers are encoded once.
func EncodeMeetingUUID(id string) string {
	if needsDoubleEncoding(id) {
		return encodeSegment(encodeSegment(id))
	}
	return encodeSegment(id)
}

func needsDoubleEncoding(id string) bool {
	if len(id) > 0 && id[0] == '/' {
		return true
	}
	for i := 1; i < len(id); i++ {
		if id[i] == '/' && id[i-1] == '/' {
			return true
		}
	}
	return false
}

const upperhex = "0123456789ABCDEF"

// encodeSegment escapes everything outside the RFC 3986 unreserved set.
// url.PathEscape is not strict enough here: it leaves "+", "=" and other
// base64 characters alone, and those must round-trip through the double
// encoding unambiguously.
func encodeSegment(s string) string {
	hex := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			hex++
		}
	}
	if hex == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+2*hex)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			out = append(out, '%', upperhex[c>>4], upperhex[c&0xf])
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}

func shouldEscape(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return false
	case c == '-' || c == '.' || c == '_' || c == '~':
		return false
	}
	return true
}
