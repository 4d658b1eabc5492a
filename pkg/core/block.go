package core

import (
	"encoding/binary"
	"math"
)

// Block is a zero-filled, resizable memory block addressed by byte offset.
// Multi-byte values are little endian: shorts are unsigned 16 bit, ints
// signed 32 bit and floats IEEE single precision. Reads past the end yield
// zero and writes past the end are dropped.
//
// Blocks share the handle space of tables. Dim hands the program the only
// reference; storing a block in a table as a ref takes another.
type Block struct {
	rt   *Runtime
	id   Handle
	refs int
	data []byte
	dead bool
}

// refSize is the width of a stored handle.
const refSize = 4

// NewBlock creates a zero-filled block of size bytes owned by the caller.
// It is not autoreleased.
func (rt *Runtime) NewBlock(size int) *Block {
	if size < 0 {
		size = 0
	}
	return rt.BlockFrom(make([]byte, size))
}

// BlockFrom wraps data in a new caller-owned block.
func (rt *Runtime) BlockFrom(data []byte) *Block {
	rt.nextID++
	b := &Block{rt: rt, id: rt.nextID, refs: 1, data: data}
	rt.blocks[b.id] = b
	return b
}

// LookupBlock resolves a handle to a live block, or nil.
func (rt *Runtime) LookupBlock(h Handle) *Block {
	return rt.blocks[h]
}

// LiveBlocks returns the number of blocks not yet freed.
func (rt *Runtime) LiveBlocks() int { return len(rt.blocks) }

func (rt *Runtime) IncRefBlock(b *Block) *Block {
	if b == nil || b.dead {
		return b
	}
	b.refs++
	return b
}

// DecRefBlock drops a reference; the block is freed at zero.
func (rt *Runtime) DecRefBlock(b *Block) {
	if b == nil || b.dead {
		return
	}
	b.refs--
	if b.refs > 0 {
		return
	}
	b.dead = true
	b.data = nil
	delete(rt.blocks, b.id)
	rt.log.WithField("handle", b.id).Debug("block freed")
}

func (b *Block) Handle() Handle {
	if b == nil {
		return 0
	}
	return b.id
}

func (b *Block) Refs() int {
	if b == nil {
		return 0
	}
	return b.refs
}

func (b *Block) Size() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Bytes returns a copy of the contents.
func (b *Block) Bytes() []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// Resize grows or shrinks the block, keeping the common prefix. New bytes
// are zero.
func (b *Block) Resize(size int) {
	if b == nil || b.dead {
		return
	}
	if size < 0 {
		size = 0
	}
	if size <= len(b.data) {
		b.data = b.data[:size:size]
		return
	}
	grown := make([]byte, size)
	copy(grown, b.data)
	b.data = grown
}

// span returns the n bytes at offset, or nil when they are not all inside
// the block.
func (b *Block) span(offset int64, n int) []byte {
	if b == nil || offset < 0 || offset+int64(n) > int64(len(b.data)) {
		return nil
	}
	return b.data[offset : offset+int64(n)]
}

func (b *Block) PeekByte(offset int64) int64 {
	if p := b.span(offset, 1); p != nil {
		return int64(p[0])
	}
	return 0
}

func (b *Block) PeekShort(offset int64) int64 {
	if p := b.span(offset, 2); p != nil {
		return int64(binary.LittleEndian.Uint16(p))
	}
	return 0
}

func (b *Block) PeekInt(offset int64) int64 {
	if p := b.span(offset, 4); p != nil {
		return int64(int32(binary.LittleEndian.Uint32(p)))
	}
	return 0
}

func (b *Block) PeekFloat(offset int64) float64 {
	if p := b.span(offset, 4); p != nil {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	}
	return 0
}

// PeekString reads bytes from offset up to the first NUL or the end of the
// block.
func (b *Block) PeekString(offset int64) string {
	if b == nil || offset < 0 || offset >= int64(len(b.data)) {
		return ""
	}
	rest := b.data[offset:]
	for i, c := range rest {
		if c == 0 {
			return string(rest[:i])
		}
	}
	return string(rest)
}

// PeekRef reads a stored handle and resolves it to a live table or block.
func (b *Block) PeekRef(offset int64) any {
	p := b.span(offset, refSize)
	if p == nil {
		return nil
	}
	h := Handle(binary.LittleEndian.Uint32(p))
	if t := b.rt.Lookup(h); t != nil {
		return t
	}
	if blk := b.rt.LookupBlock(h); blk != nil {
		return blk
	}
	return nil
}

func (b *Block) PokeByte(offset, v int64) {
	if p := b.span(offset, 1); p != nil {
		p[0] = byte(v)
	}
}

func (b *Block) PokeShort(offset, v int64) {
	if p := b.span(offset, 2); p != nil {
		binary.LittleEndian.PutUint16(p, uint16(v))
	}
}

func (b *Block) PokeInt(offset, v int64) {
	if p := b.span(offset, 4); p != nil {
		binary.LittleEndian.PutUint32(p, uint32(int32(v)))
	}
}

func (b *Block) PokeFloat(offset int64, v float64) {
	if p := b.span(offset, 4); p != nil {
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	}
}

// PokeString writes s and a terminating NUL, clipped to the block.
func (b *Block) PokeString(offset int64, s string) {
	if b == nil || offset < 0 || offset >= int64(len(b.data)) {
		return
	}
	n := copy(b.data[offset:], s)
	if end := offset + int64(n); end < int64(len(b.data)) {
		b.data[end] = 0
	}
}

// PokeRef stores the handle of a table or block. The block does not own
// what it points to; anything else stores the null handle.
func (b *Block) PokeRef(offset int64, r any) {
	p := b.span(offset, refSize)
	if p == nil {
		return
	}
	var h Handle
	switch r := r.(type) {
	case *Table:
		h = r.Handle()
	case *Block:
		h = r.Handle()
	}
	binary.LittleEndian.PutUint32(p, uint32(h))
}
