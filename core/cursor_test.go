package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datachainlab/crossdomain-relayer/core"
)

func TestBlockCursorAdvance(t *testing.T) {
	cursor := core.NewBlockCursor(100)
	assert.Equal(t, uint64(100), cursor.Height())

	assert.True(t, cursor.Advance(150))
	assert.Equal(t, uint64(150), cursor.Height())

	// a stale or equal height never moves the cursor backwards
	assert.False(t, cursor.Advance(150))
	assert.False(t, cursor.Advance(120))
	assert.Equal(t, uint64(150), cursor.Height())
}

func TestBlockCursorZeroStart(t *testing.T) {
	cursor := core.NewBlockCursor(0)
	assert.Equal(t, uint64(0), cursor.Height())
	assert.True(t, cursor.Advance(1))
	assert.Equal(t, uint64(1), cursor.Height())
}
