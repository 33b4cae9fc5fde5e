package idcodec

import (
	"fmt"
	"strconv"

	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/bitio"
)

// Mode is the identifier substream's framing byte (spec §4.3).
type Mode uint8

const (
	// ModeExact stores each id as [varint(len) || bytes], general-compressed.
	ModeExact Mode = 0x01
	// ModeTokenize stores a detected pattern plus per-column streams.
	ModeTokenize Mode = 0x02
	// ModeDiscard stores nothing; ids are synthesized on decode.
	ModeDiscard Mode = 0x03
)

// DefaultMatchThreshold is the fraction of a batch that must match the
// detected pattern for Tokenize mode to be selected (spec §4.3).
const DefaultMatchThreshold = 0.8

// Config controls identifier encoding.
type Config struct {
	// MatchThreshold overrides DefaultMatchThreshold when non-zero.
	MatchThreshold float64
	// PreferLZMA selects the DELTA_LZMA family instead of DELTA_ZSTD for
	// the general-compression stage of Exact/Tokenize payloads.
	PreferLZMA bool
	// Discard, when true, forces ModeDiscard: ids are not stored at all.
	Discard bool
	// DiscardPrefix is the literal prefix synthesized ids carry
	// (`@<prefix><n>`) when Discard is set.
	DiscardPrefix string
	// DiscardPaired selects the `@<prefix><pair>/<read>` synthesis form
	// for interleaved paired-end input.
	DiscardPaired bool
}

func (c Config) threshold() float64 {
	if c.MatchThreshold == 0 {
		return DefaultMatchThreshold
	}

	return c.MatchThreshold
}

func (c Config) algorithm() compress.Algorithm {
	if c.PreferLZMA {
		return compress.AlgorithmLZMA
	}

	return compress.AlgorithmZstd
}

func (c Config) codecTag() format.CodecTag {
	if c.PreferLZMA {
		return format.FamilyDeltaLZMA
	}

	return format.FamilyDeltaZstd
}

// Encode compresses a batch of identifiers, returning the block-level
// codec tag for the IDS substream and its framed, general-compressed
// payload.
func Encode(ids []string, cfg Config) (format.CodecTag, []byte, error) {
	if cfg.Discard {
		return format.FamilyRaw, encodeDiscard(cfg), nil
	}

	mode, p, tokenized, matched := decideMode(ids, cfg)

	if mode == ModeTokenize {
		raw := encodeTokenize(p, ids, tokenized, matched)
		return cfg.codecTag(), frame(ModeTokenize, raw, cfg.algorithm())
	}

	raw := encodeExact(ids)
	return cfg.codecTag(), frame(ModeExact, raw, cfg.algorithm())
}

// DetectMode reports which Mode Encode would choose for ids, without
// paying for the general-compression pass. Callers that need to know the
// archive-wide id encoding ahead of per-block compression (the GlobalHeader
// id_mode flag) use this instead of re-deriving Encode's decision.
func DetectMode(ids []string, cfg Config) Mode {
	if cfg.Discard {
		return ModeDiscard
	}

	mode, _, _, _ := decideMode(ids, cfg)
	return mode
}

// decideMode runs the pattern-detection pass shared by Encode and
// DetectMode: it picks ModeTokenize when the batch's leading id's pattern
// matches at least cfg.threshold() of the batch and the pattern carries a
// dynamic integer column (spec §4.3), ModeExact otherwise.
func decideMode(ids []string, cfg Config) (Mode, pattern, [][]token, []bool) {
	p := pattern{}
	var tokenized [][]token
	var matched []bool
	ratio := 0.0
	hasIntColumn := false

	if len(ids) > 0 {
		p = detectPattern(ids[0])
		ratio, tokenized = matchRatio(p, ids)
		matched = make([]bool, len(ids))
		for i := range ids {
			matched[i] = p.matches(tokenized[i])
		}
		resolveColumnKinds(&p, ids, tokenized, matched)
		for _, col := range p.columns {
			if col.kind == TokenDynamicInt {
				hasIntColumn = true
				break
			}
		}
	}

	if len(ids) > 0 && ratio >= cfg.threshold() && hasIntColumn {
		return ModeTokenize, p, tokenized, matched
	}

	return ModeExact, p, tokenized, matched
}

// Decode reverses Encode for Exact/Tokenize payloads. count is the number
// of identifiers expected; callers read it from the block header
// (read_count). Discard-mode payloads (tag.Family() == format.FamilyRaw)
// are never framed/compressed, so they are never valid input to Decode;
// callers must route them to Synthesize instead (see block.Decompress).
func Decode(tag format.CodecTag, payload []byte, count int) ([]string, error) {
	if tag.Family() == format.FamilyRaw {
		return nil, fmt.Errorf("idcodec: Discard-mode payload must be decoded via Synthesize, not Decode")
	}

	mode, rawSize, body, err := unframe(payload)
	if err != nil {
		return nil, err
	}

	algo := compress.AlgorithmZstd
	if tag.Family() == format.FamilyDeltaLZMA {
		algo = compress.AlgorithmLZMA
	}

	codec, err := compress.Get(algo)
	if err != nil {
		return nil, fmt.Errorf("idcodec: %w", err)
	}

	raw, err := codec.Decompress(body)
	if err != nil {
		return nil, fmt.Errorf("idcodec: decompress payload: %w", err)
	}
	if len(raw) != rawSize {
		return nil, fmt.Errorf("idcodec: decompressed size %d, want %d", len(raw), rawSize)
	}

	switch mode {
	case ModeExact:
		return decodeExact(raw, count)
	case ModeTokenize:
		return decodeTokenize(raw, count)
	default:
		return nil, fmt.Errorf("idcodec: unknown mode %#x", mode)
	}
}

// frame wraps a raw payload with the [mode][varint rawSize] header, then
// general-compresses it.
func frame(mode Mode, raw []byte, algo compress.Algorithm) ([]byte, error) {
	codec, err := compress.Get(algo)
	if err != nil {
		return nil, fmt.Errorf("idcodec: %w", err)
	}

	compressed, err := codec.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("idcodec: compress payload: %w", err)
	}

	out := make([]byte, 0, 1+bitio.VarintLen(uint64(len(raw)))+len(compressed))
	out = append(out, byte(mode))
	out = bitio.AppendUvarint(out, uint64(len(raw)))
	out = append(out, compressed...)

	return out, nil
}

func unframe(payload []byte) (Mode, int, []byte, error) {
	if len(payload) < 1 {
		return 0, 0, nil, fmt.Errorf("idcodec: empty payload")
	}

	mode := Mode(payload[0])
	rawSize, n, err := bitio.ReadUvarint(payload[1:])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("idcodec: read raw size: %w", err)
	}

	return mode, int(rawSize), payload[1+n:], nil
}

func encodeExact(ids []string) []byte {
	var out []byte
	for _, id := range ids {
		out = bitio.AppendUvarint(out, uint64(len(id)))
		out = append(out, id...)
	}

	return out
}

func decodeExact(raw []byte, count int) ([]string, error) {
	out := make([]string, 0, count)
	pos := 0

	for i := 0; i < count; i++ {
		if pos >= len(raw) {
			return nil, fmt.Errorf("idcodec: exact stream truncated at id %d", i)
		}

		l, n, err := bitio.ReadUvarint(raw[pos:])
		if err != nil {
			return nil, fmt.Errorf("idcodec: exact length at id %d: %w", i, err)
		}
		pos += n

		if pos+int(l) > len(raw) {
			return nil, fmt.Errorf("idcodec: exact bytes truncated at id %d", i)
		}
		out = append(out, string(raw[pos:pos+int(l)]))
		pos += int(l)
	}

	if pos != len(raw) {
		return nil, fmt.Errorf("idcodec: exact stream has %d trailing bytes", len(raw)-pos)
	}

	return out, nil
}

// encodeTokenize writes the pattern header, the exception list (ids that
// failed to match, stored verbatim), and the per-column streams for the
// remaining matching ids in original order.
func encodeTokenize(p pattern, ids []string, tokenized [][]token, matched []bool) []byte {
	var out []byte

	out = bitio.AppendUvarint(out, uint64(len(p.tokens)))
	for _, t := range p.tokens {
		out = append(out, byte(t.Kind))
		if t.Kind == TokenStatic || t.Kind == TokenDelimiter {
			out = bitio.AppendUvarint(out, uint64(len(t.Text)))
			out = append(out, t.Text...)
		}
	}

	out = bitio.AppendUvarint(out, uint64(len(p.columns)))
	for _, c := range p.columns {
		out = bitio.AppendUvarint(out, uint64(c.tokenIndex))
		out = append(out, byte(c.kind))
	}

	var exceptionIdx []int
	for i, ok := range matched {
		if !ok {
			exceptionIdx = append(exceptionIdx, i)
		}
	}
	out = bitio.AppendUvarint(out, uint64(len(exceptionIdx)))
	prevIdx := 0
	for _, idx := range exceptionIdx {
		out = bitio.AppendUvarint(out, uint64(idx-prevIdx))
		prevIdx = idx
		out = bitio.AppendUvarint(out, uint64(len(ids[idx])))
		out = append(out, ids[idx]...)
	}

	for _, col := range p.columns {
		values := make([]uint64, 0, len(ids)-len(exceptionIdx))
		strs := make([]string, 0, len(ids)-len(exceptionIdx))

		for i, ok := range matched {
			if !ok {
				continue
			}
			text := tokenized[i][col.tokenIndex].Text
			if col.kind == TokenDynamicInt {
				v, _ := strconv.ParseUint(text, 10, 64)
				values = append(values, v)
			} else {
				strs = append(strs, text)
			}
		}

		if col.kind == TokenDynamicInt {
			deltaStream := bitio.EncodeDeltaVarint(values)
			out = bitio.AppendUvarint(out, uint64(len(deltaStream)))
			out = append(out, deltaStream...)
		} else {
			for _, s := range strs {
				out = bitio.AppendUvarint(out, uint64(len(s)))
				out = append(out, s...)
			}
		}
	}

	return out
}

func decodeTokenize(raw []byte, count int) ([]string, error) {
	pos := 0

	readUvarint := func() (uint64, error) {
		v, n, err := bitio.ReadUvarint(raw[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}

	numTokens, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("idcodec: token count: %w", err)
	}

	tokens := make([]token, numTokens)
	for i := range tokens {
		if pos >= len(raw) {
			return nil, fmt.Errorf("idcodec: truncated token header at %d", i)
		}
		kind := TokenKind(raw[pos])
		pos++
		tokens[i].Kind = kind

		if kind == TokenStatic || kind == TokenDelimiter {
			l, err := readUvarint()
			if err != nil {
				return nil, fmt.Errorf("idcodec: token %d text length: %w", i, err)
			}
			if pos+int(l) > len(raw) {
				return nil, fmt.Errorf("idcodec: token %d text truncated", i)
			}
			tokens[i].Text = string(raw[pos : pos+int(l)])
			pos += int(l)
		}
	}

	numColumns, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("idcodec: column count: %w", err)
	}

	columns := make([]column, numColumns)
	for i := range columns {
		idx, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("idcodec: column %d index: %w", i, err)
		}
		if pos >= len(raw) {
			return nil, fmt.Errorf("idcodec: truncated column kind at %d", i)
		}
		columns[i] = column{tokenIndex: int(idx), kind: TokenKind(raw[pos])}
		pos++
	}

	numExceptions, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("idcodec: exception count: %w", err)
	}

	exceptionAt := make(map[int]string, numExceptions)
	prevIdx := uint64(0)
	for i := uint64(0); i < numExceptions; i++ {
		delta, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("idcodec: exception %d index: %w", i, err)
		}
		idx := prevIdx + delta
		prevIdx = idx

		l, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("idcodec: exception %d length: %w", i, err)
		}
		if pos+int(l) > len(raw) {
			return nil, fmt.Errorf("idcodec: exception %d text truncated", i)
		}
		exceptionAt[int(idx)] = string(raw[pos : pos+int(l)])
		pos += int(l)
	}

	numMatching := count - len(exceptionAt)
	if numMatching < 0 {
		return nil, fmt.Errorf("idcodec: exception count %d exceeds record count %d", len(exceptionAt), count)
	}

	colInts := make([][]uint64, len(columns))
	colStrs := make([][]string, len(columns))

	for ci, col := range columns {
		if col.kind == TokenDynamicInt {
			l, err := readUvarint()
			if err != nil {
				return nil, fmt.Errorf("idcodec: column %d stream length: %w", ci, err)
			}
			if pos+int(l) > len(raw) {
				return nil, fmt.Errorf("idcodec: column %d stream truncated", ci)
			}
			values, err := bitio.DecodeDeltaVarint(raw[pos:pos+int(l)], numMatching)
			if err != nil {
				return nil, fmt.Errorf("idcodec: column %d delta stream: %w", ci, err)
			}
			pos += int(l)
			colInts[ci] = values
		} else {
			strs := make([]string, numMatching)
			for i := 0; i < numMatching; i++ {
				l, err := readUvarint()
				if err != nil {
					return nil, fmt.Errorf("idcodec: column %d string %d length: %w", ci, i, err)
				}
				if pos+int(l) > len(raw) {
					return nil, fmt.Errorf("idcodec: column %d string %d truncated", ci, i)
				}
				strs[i] = string(raw[pos : pos+int(l)])
				pos += int(l)
			}
			colStrs[ci] = strs
		}
	}

	out := make([]string, count)
	matchCursor := 0
	for i := 0; i < count; i++ {
		if text, ok := exceptionAt[i]; ok {
			out[i] = text
			continue
		}

		out[i] = renderFromPattern(tokens, columns, colInts, colStrs, matchCursor)
		matchCursor++
	}

	return out, nil
}

func renderFromPattern(tokens []token, columns []column, colInts [][]uint64, colStrs [][]string, row int) string {
	colAt := make(map[int]int, len(columns))
	for ci, c := range columns {
		colAt[c.tokenIndex] = ci
	}

	var out []byte
	for ti, t := range tokens {
		if ci, ok := colAt[ti]; ok {
			if columns[ci].kind == TokenDynamicInt {
				out = strconv.AppendUint(out, colInts[ci][row], 10)
			} else {
				out = append(out, colStrs[ci][row]...)
			}
			continue
		}
		out = append(out, t.Text...)
	}

	return string(out)
}

func encodeDiscard(cfg Config) []byte {
	var out []byte
	out = append(out, byte(ModeDiscard))
	out = bitio.AppendUvarint(out, uint64(len(cfg.DiscardPrefix)))
	out = append(out, cfg.DiscardPrefix...)
	paired := byte(0)
	if cfg.DiscardPaired {
		paired = 1
	}
	out = append(out, paired)

	return out
}

// Synthesize reconstructs identifiers from a Discard-mode payload: plain
// `@<prefix><n>` for unpaired reads, `@<prefix><pair>/<read>` for
// interleaved paired-end (n = 2*pair + read - 1, read in {1,2}).
func Synthesize(payload []byte, count int, archiveIDStart uint64) ([]string, error) {
	if len(payload) < 1 || Mode(payload[0]) != ModeDiscard {
		return nil, fmt.Errorf("idcodec: payload is not ModeDiscard")
	}

	pos := 1
	l, n, err := bitio.ReadUvarint(payload[pos:])
	if err != nil {
		return nil, fmt.Errorf("idcodec: discard prefix length: %w", err)
	}
	pos += n
	if pos+int(l) > len(payload) {
		return nil, fmt.Errorf("idcodec: discard prefix truncated")
	}
	prefix := string(payload[pos : pos+int(l)])
	pos += int(l)

	if pos >= len(payload) {
		return nil, fmt.Errorf("idcodec: discard payload missing paired flag")
	}
	paired := payload[pos] != 0

	out := make([]string, count)
	for i := 0; i < count; i++ {
		n := archiveIDStart + uint64(i)
		if !paired {
			out[i] = fmt.Sprintf("@%s%d", prefix, n)
			continue
		}
		pair := n / 2
		read := n%2 + 1
		out[i] = fmt.Sprintf("@%s%d/%d", prefix, pair, read)
	}

	return out, nil
}
