package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-mrrd/mrrd"
)

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.h5")
	d, err := mrrd.Open(path, "dataset")
	require.NoError(t, err)
	require.NoError(t, d.AppendArray("img", mrrd.NewNDArray[complex64](4, 2)))
	for i := 0; i < 3; i++ {
		acq := mrrd.NewAcquisition(4, 1, 0)
		acq.Head.Idx.KSpaceEncodeStep1 = uint16(i)
		if i == 0 {
			acq.Head.SetFlag(mrrd.FirstInSlice)
		}
		require.NoError(t, d.AppendAcquisition(acq))
	}
	require.NoError(t, d.WriteHeader("<notxml"))
	require.NoError(t, d.Close())

	var out bytes.Buffer
	require.NoError(t, inspect(&out, path, "dataset"))
	text := out.String()

	assert.Contains(t, text, `Group "/dataset"`)
	assert.Contains(t, text, `Dataset "/dataset/data/head"`)
	assert.Contains(t, text, "img: depth 1, dims [4 2], complex64")
	assert.Contains(t, text, "Acquisitions: 3")
	assert.Contains(t, text, "[0] samples 4, channels 1/1, line 0, flags [FIRST_IN_SLICE]")
	assert.Contains(t, text, "[2] samples 4, channels 1/1, line 2, flags []")
	assert.Contains(t, text, "does not parse")
}

func TestInspectMissingGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.h5")
	d, err := mrrd.Open(path, "dataset")
	require.NoError(t, err)
	require.NoError(t, d.Close())

	err = inspect(&bytes.Buffer{}, path, "other")
	assert.ErrorIs(t, err, mrrd.ErrOpenFailed)
}
