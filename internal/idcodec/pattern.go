package idcodec

import "strconv"

// column describes one dynamic position in a detected pattern: its index
// into the pattern's token slice and the kind it was resolved to after
// scanning the whole batch (Int if every matching id parses there, String
// otherwise).
type column struct {
	tokenIndex int
	kind       TokenKind // TokenDynamicInt or TokenDynamicString
}

// pattern is the skeleton detected from the first identifier in a batch:
// static and delimiter tokens carry their literal text, dynamic tokens mark
// the position of a column whose values vary per id.
type pattern struct {
	tokens  []token
	columns []column
}

// detectPattern tokenizes the first id and records a dynamic column for
// every DynamicInt/DynamicString token.
func detectPattern(firstID string) pattern {
	tokens := tokenize(firstID)

	p := pattern{tokens: tokens}
	for i, tok := range tokens {
		if tok.Kind == TokenDynamicInt || tok.Kind == TokenDynamicString {
			p.columns = append(p.columns, column{tokenIndex: i, kind: tok.Kind})
		}
	}

	return p
}

// matches reports whether id's token-type sequence lines up with the
// pattern: Static and Delimiter tokens must match literally; dynamic
// positions accept either DynamicInt or DynamicString (the int/string
// relaxation from spec §4.3).
func (p pattern) matches(toks []token) bool {
	if len(toks) != len(p.tokens) {
		return false
	}

	for i, pt := range p.tokens {
		switch pt.Kind {
		case TokenStatic, TokenDelimiter:
			if toks[i].Kind != pt.Kind || toks[i].Text != pt.Text {
				return false
			}
		case TokenDynamicInt, TokenDynamicString:
			if toks[i].Kind != TokenDynamicInt && toks[i].Kind != TokenDynamicString {
				return false
			}
		}
	}

	return true
}

// matchRatio tokenizes every id in ids and returns the fraction that match
// p, along with the per-id tokenization (every id's tokens, whether it
// matched or not) so callers don't re-tokenize.
func matchRatio(p pattern, ids []string) (ratio float64, tokenized [][]token) {
	tokenized = make([][]token, len(ids))
	matchCount := 0

	for i, id := range ids {
		toks := tokenize(id)
		tokenized[i] = toks
		if p.matches(toks) {
			matchCount++
		}
	}

	if len(ids) == 0 {
		return 0, tokenized
	}

	return float64(matchCount) / float64(len(ids)), tokenized
}

// resolveColumnKinds narrows each pattern column to DynamicInt only if
// every matching id's token at that position parses as a uint64; otherwise
// the column falls back to DynamicString for the whole batch.
func resolveColumnKinds(p *pattern, ids []string, tokenized [][]token, matches []bool) {
	for ci := range p.columns {
		col := &p.columns[ci]
		if col.kind != TokenDynamicInt {
			continue
		}

		allInt := true
		for i := range ids {
			if !matches[i] {
				continue
			}
			text := tokenized[i][col.tokenIndex].Text
			if _, err := strconv.ParseUint(text, 10, 64); err != nil {
				allInt = false
				break
			}
		}

		if !allInt {
			col.kind = TokenDynamicString
		}
	}
}
