package expr

type span struct {
	start, end int // s[start:end] includes both braces
}

// scanSpans finds the outermost {...} spans of a template. Braces inside
// quoted strings do not count and an unterminated span is ignored.
func scanSpans(s string) []span {
	var spans []span
	depth := 0
	start := -1
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			if depth > 0 {
				quote = c
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, span{start: start, end: i + 1})
			}
		}
	}
	return spans
}

// checkAssignment rejects any '=' that is not part of ==, !=, <=, >=, ===,
// !== or =>. String literal contents are skipped.
func checkAssignment(src string) error {
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '=':
			var prev, prev2, next byte
			if i > 0 {
				prev = src[i-1]
			}
			if i > 1 {
				prev2 = src[i-2]
			}
			if i+1 < len(src) {
				next = src[i+1]
			}
			switch {
			case prev == '=' || prev == '!':
			case (prev == '<' || prev == '>') && prev2 != '<' && prev2 != '>':
			case next == '=' || next == '>':
			default:
				return ErrAssignment
			}
		}
	}
	return nil
}
