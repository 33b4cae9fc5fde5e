// Package qualcodec implements the quality codec (C4): a statistical
// context-mixing arithmetic coder over Phred+33 quality strings, with
// optional lossy pre-transforms applied before modeling.
package qualcodec

import (
	"fmt"

	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/bitio"
	"github.com/fqcompress/fqc/internal/rangecoder"
)

// LossyMode selects the pre-modeling transform applied to quality scores.
type LossyMode uint8

const (
	// LossyNone preserves quality scores exactly.
	LossyNone LossyMode = 0x00
	// LossyIllumina8 quantizes to the 8-bin Illumina scheme.
	LossyIllumina8 LossyMode = 0x01
	// LossyQVZ is a model-based quantizer; this implementation does not
	// support it and rejects it at configuration time (spec §9 open
	// question, resolved in favor of rejecting rather than guessing at an
	// undocumented quantizer).
	LossyQVZ LossyMode = 0x02
	// LossyDiscard stores nothing; decode synthesizes '!' placeholders.
	LossyDiscard LossyMode = 0x03
)

// DefaultOrder is the previous-quality context order.
const DefaultOrder = 1

// DefaultBins is the position-bin count B (must be a power of two, spec
// §4.4).
const DefaultBins = 16

// Config controls quality encoding.
type Config struct {
	// Order is the previous-quality context order, 1 or 2. Zero selects
	// DefaultOrder, so an order-0 model is never used.
	Order int
	// Bins is the position-bin count B, a power of two in [1,256].
	Bins int
	// Lossy selects the pre-modeling transform.
	Lossy LossyMode
	// Wrap general-compresses the arithmetic-coded byte stream.
	Wrap bool
}

func (c Config) order() int {
	if c.Order == 0 {
		return DefaultOrder
	}

	return c.Order
}

func (c Config) bins() int {
	if c.Bins == 0 {
		return DefaultBins
	}

	return c.Bins
}

func (c Config) codecTag() format.CodecTag {
	if c.order() == 0 {
		return format.FamilySCM
	}

	return format.FamilySCMOrder1
}

// Encode arithmetic-codes quals (one string per read, Phred+33 bytes) in
// block order, resetting the previous-quality context at each read
// boundary. Returns the block-level codec tag and framed payload.
func Encode(quals []string, cfg Config) (format.CodecTag, []byte, error) {
	if cfg.Lossy == LossyQVZ {
		return 0, nil, errs.New(errs.UnsupportedCodec, "QVZ quality quantization is not implemented")
	}

	if cfg.Lossy == LossyDiscard {
		return cfg.codecTag(), frameHeader(cfg), nil
	}

	order := cfg.order()
	bins := cfg.bins()

	enc := rangecoder.NewEncoder()
	models := newModelSet(order, bins)

	for _, q := range quals {
		readLen := len(q)
		if readLen == 0 {
			continue
		}

		win := newContextWindow(order)
		for pos := 0; pos < readLen; pos++ {
			sym := int(q[pos]) - '!'
			if cfg.Lossy == LossyIllumina8 {
				sym = mapIllumina8(sym)
			}

			bin := positionBin(pos, readLen, bins)
			key := contextKey(win.prevs, bin)
			model := models.get(key)

			cum, freq := model.CumFreq(sym), model.Freq(sym)
			enc.Encode(cum, freq, model.Total())
			model.Update(sym)

			win.push(sym)
		}
	}

	// Copy out of the encoder's pooled buffer before releasing it: Release
	// returns the backing array to the pool, where a concurrent block
	// worker's encoder could reuse and overwrite it.
	body := append([]byte(nil), enc.Finish()...)
	enc.Release()

	payload, err := finishPayload(cfg, body)
	if err != nil {
		return 0, nil, err
	}

	return cfg.codecTag(), payload, nil
}

// Decode reverses Encode given the per-read lengths observed in block
// order (read from the block's uniform length or aux stream).
func Decode(tag format.CodecTag, payload []byte, readLens []int) ([]string, error) {
	cfg, body, err := parseHeader(payload)
	if err != nil {
		return nil, err
	}

	if cfg.Lossy == LossyDiscard {
		out := make([]string, len(readLens))
		for i, l := range readLens {
			out[i] = placeholderQuality(l)
		}

		return out, nil
	}

	raw, err := unwrapBody(cfg, body)
	if err != nil {
		return nil, err
	}

	order := cfg.order()
	bins := cfg.bins()

	dec := rangecoder.NewDecoder(raw)
	models := newModelSet(order, bins)

	out := make([]string, len(readLens))
	for i, readLen := range readLens {
		if readLen == 0 {
			out[i] = ""
			continue
		}

		buf := make([]byte, readLen)
		win := newContextWindow(order)

		for pos := 0; pos < readLen; pos++ {
			bin := positionBin(pos, readLen, bins)
			key := contextKey(win.prevs, bin)
			model := models.get(key)

			target := dec.GetFreq(model.Total())
			sym, cum, freq := model.Find(target)
			dec.Decode(cum, freq, model.Total())
			model.Update(sym)

			buf[pos] = byte(sym + '!')
			win.push(sym)
		}

		out[i] = string(buf)
	}

	_ = tag
	return out, nil
}

func placeholderQuality(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = '!'
	}

	return string(buf)
}

// frameHeader/parseHeader carry [lossy mode][order][bins][wrap flag]
// ahead of the arithmetic-coded (and possibly general-compressed) body.
func frameHeader(cfg Config) []byte {
	wrap := byte(0)
	if cfg.Wrap {
		wrap = 1
	}

	out := make([]byte, 0, 4)
	out = append(out, byte(cfg.Lossy))
	out = bitio.AppendUvarint(out, uint64(cfg.order()))
	out = bitio.AppendUvarint(out, uint64(cfg.bins()))
	out = append(out, wrap)

	return out
}

func parseHeader(payload []byte) (Config, []byte, error) {
	if len(payload) < 1 {
		return Config{}, nil, fmt.Errorf("qualcodec: empty payload")
	}

	cfg := Config{Lossy: LossyMode(payload[0])}
	pos := 1

	order, n, err := bitio.ReadUvarint(payload[pos:])
	if err != nil {
		return Config{}, nil, fmt.Errorf("qualcodec: order: %w", err)
	}
	pos += n
	cfg.Order = int(order)

	bins, n, err := bitio.ReadUvarint(payload[pos:])
	if err != nil {
		return Config{}, nil, fmt.Errorf("qualcodec: bins: %w", err)
	}
	pos += n
	cfg.Bins = int(bins)

	if pos >= len(payload) {
		return Config{}, nil, fmt.Errorf("qualcodec: missing wrap flag")
	}
	cfg.Wrap = payload[pos] != 0
	pos++

	return cfg, payload[pos:], nil
}

func finishPayload(cfg Config, body []byte) ([]byte, error) {
	header := frameHeader(cfg)

	if !cfg.Wrap {
		return append(header, body...), nil
	}

	codec, err := compress.Get(compress.AlgorithmZstd)
	if err != nil {
		return nil, fmt.Errorf("qualcodec: %w", err)
	}

	compressed, err := codec.Compress(body)
	if err != nil {
		return nil, fmt.Errorf("qualcodec: wrap compress: %w", err)
	}

	out := make([]byte, 0, len(header)+bitio.VarintLen(uint64(len(body)))+len(compressed))
	out = append(out, header...)
	out = bitio.AppendUvarint(out, uint64(len(body)))
	out = append(out, compressed...)

	return out, nil
}

func unwrapBody(cfg Config, body []byte) ([]byte, error) {
	if !cfg.Wrap {
		return body, nil
	}

	rawSize, n, err := bitio.ReadUvarint(body)
	if err != nil {
		return nil, fmt.Errorf("qualcodec: wrap raw size: %w", err)
	}

	codec, err := compress.Get(compress.AlgorithmZstd)
	if err != nil {
		return nil, fmt.Errorf("qualcodec: %w", err)
	}

	raw, err := codec.Decompress(body[n:])
	if err != nil {
		return nil, fmt.Errorf("qualcodec: wrap decompress: %w", err)
	}
	if len(raw) != int(rawSize) {
		return nil, fmt.Errorf("qualcodec: wrap size mismatch: got %d want %d", len(raw), rawSize)
	}

	return raw, nil
}
