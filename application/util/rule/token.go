package rule

// NextToken skips leading whitespace in b and cuts the following run of
// non-whitespace bytes. rest starts right after the token.
// If b holds only whitespace, token is empty.
func NextToken(b []byte) (token, rest []byte) {
	start := 0
	for start < len(b) && IsWhitespace(b[start]) {
		start++
	}

	end := start
	for end < len(b) && !IsWhitespace(b[end]) {
		end++
	}

	return b[start:end], b[end:]
}
