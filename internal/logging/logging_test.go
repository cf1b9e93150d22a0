package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("warn", &buf)
	require.NoError(t, err)

	log.Infow("hidden", "k", 1)
	log.Warnw("shown", "name", "the_square")
	Sync(log)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"name": "the_square"`)
}

func TestBadLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}
