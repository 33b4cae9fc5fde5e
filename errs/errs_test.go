package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/errs"
)

func TestErrorIsSentinel(t *testing.T) {
	err := errs.New(errs.ChecksumMismatch, "block 3 checksum mismatch").WithBlock(3)
	require.True(t, errors.Is(err, errs.ErrChecksumMismatch))
	require.False(t, errors.Is(err, errs.ErrCorrupted))
}

func TestErrorWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := errs.Wrap(errs.Io, "writing block", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "disk full")
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errs.New(errs.Usage, "x"), 1},
		{errs.New(errs.Io, "x"), 2},
		{errs.New(errs.Format, "x"), 3},
		{errs.New(errs.ChecksumMismatch, "x"), 4},
		{errs.New(errs.UnsupportedCodec, "x"), 5},
		{errors.New("plain"), 1},
	}

	for _, c := range cases {
		require.Equal(t, c.want, errs.ExitCode(c.err))
	}
}

func TestWithAccessors(t *testing.T) {
	var blockID uint32 = 7
	err := errs.New(errs.Corrupted, "bad aux").WithBlock(blockID).WithOffset(128).WithReadIndex(42)
	require.Equal(t, &blockID, err.BlockID)
	require.Equal(t, int64(128), *err.Offset)
	require.Equal(t, uint64(42), *err.ReadIndex)
}
