package qualcodec

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/errs"
)

func randomQualities(n, length int, seed int64) []string {
	r := rand.New(rand.NewSource(seed)) //nolint:gosec

	out := make([]string, n)
	for i := range out {
		buf := make([]byte, length)
		for j := range buf {
			// Skew toward high quality scores, like real Illumina data.
			score := 30 + r.Intn(10) - r.Intn(5)
			if score < 0 {
				score = 0
			}
			if score > 40 {
				score = 40
			}
			buf[j] = byte('!' + score)
		}
		out[i] = string(buf)
	}

	return out
}

func readLens(quals []string) []int {
	lens := make([]int, len(quals))
	for i, q := range quals {
		lens[i] = len(q)
	}

	return lens
}

func TestEncodeDecodeRoundTripOrder1(t *testing.T) {
	quals := randomQualities(30, 75, 1)

	tag, payload, err := Encode(quals, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, quals, got)
}

func TestEncodeDecodeRoundTripOrder2(t *testing.T) {
	quals := randomQualities(20, 100, 2)

	tag, payload, err := Encode(quals, Config{Order: 2, Bins: 32})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, quals, got)
}

func TestEncodeDecodeRoundTripOrder0(t *testing.T) {
	quals := randomQualities(15, 50, 3)

	tag, payload, err := Encode(quals, Config{Order: 0, Bins: 8})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, quals, got)
}

func TestEncodeDecodeWithWrap(t *testing.T) {
	quals := randomQualities(25, 60, 4)

	tag, payload, err := Encode(quals, Config{Wrap: true})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, quals, got)
}

func TestIllumina8IsLossyButDeterministic(t *testing.T) {
	quals := randomQualities(10, 40, 5)

	tag, payload, err := Encode(quals, Config{Lossy: LossyIllumina8})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.NotEqual(t, quals, got, "lossy mode should generally rewrite at least one score in a random batch")

	got2, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, got, got2, "decoding twice from the same payload must be deterministic")
}

func TestDiscardSynthesizesPlaceholders(t *testing.T) {
	quals := randomQualities(5, 20, 6)

	tag, payload, err := Encode(quals, Config{Lossy: LossyDiscard})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)

	for i, q := range got {
		require.Len(t, q, len(quals[i]))
		for _, b := range []byte(q) {
			require.Equal(t, byte('!'), b)
		}
	}
}

func TestQVZIsRejected(t *testing.T) {
	_, _, err := Encode([]string{"!!!"}, Config{Lossy: LossyQVZ})
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrUnsupportedCodec))
}

func TestEmptyReadsRoundTrip(t *testing.T) {
	quals := []string{"", "III", ""}

	tag, payload, err := Encode(quals, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLens(quals))
	require.NoError(t, err)
	require.Equal(t, quals, got)
}
