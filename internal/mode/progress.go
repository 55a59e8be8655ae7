package mode

// Progress receives chaining loop notifications. Any field may be nil.
// Callbacks run on the goroutine executing the operation.
type Progress struct {
	// SetDataSize reports the plaintext size in bytes.
	SetDataSize func(size uint64)
	// SetBlockCount reports the number of full data blocks.
	SetBlockCount func(count uint64)
	// BlockDone reports the index of each processed data block.
	BlockDone func(index uint64)
}

func (p Progress) dataSize(n uint64) {
	if p.SetDataSize != nil {
		p.SetDataSize(n)
	}
}

func (p Progress) blockCount(n uint64) {
	if p.SetBlockCount != nil {
		p.SetBlockCount(n)
	}
}

func (p Progress) blockDone(i uint64) {
	if p.BlockDone != nil {
		p.BlockDone(i)
	}
}
