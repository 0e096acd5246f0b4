package core

// BlockCursor is a per-chain monotonic watermark of the last scanned block.
// It lives in memory only; a restart re-indexes from the configured start
// block.
type BlockCursor struct {
	height uint64
}

func NewBlockCursor(startBlock uint64) *BlockCursor {
	return &BlockCursor{height: startBlock}
}

// Height returns the last scanned block number.
func (c *BlockCursor) Height() uint64 {
	return c.height
}

// Advance moves the cursor to the given block number. It is a no-op and
// returns false when the new height does not exceed the current one, so the
// cursor is non-decreasing for the process lifetime.
func (c *BlockCursor) Advance(to uint64) bool {
	if to <= c.height {
		return false
	}
	c.height = to
	return true
}
