package value

// base is embedded by every heap object to supply the refcount word
// required by the heapObject interface.
type base struct {
	refc int32
}

func (b *base) rc() *int32 { return &b.refc }
