package packet

// Reassembler reconstructs coded Units from consecutive, already-ordered
// packets belonging to the same fragment group. It assumes its caller (the
// jitter buffer) has already resolved ordering and duplicate detection; it
// only concerns itself with fragment bookkeeping.
type Reassembler struct {
	seq     uint32
	total   uint16
	have    uint16
	parts   [][]byte
	started bool
}

// Add feeds one packet into the in-progress fragment group. It returns the
// reassembled Unit and true once every fragment of the group identified by
// the packet's sequence (all fragments of one logical packet share a
// sequence number, spec §3) has arrived. Packets belonging to a stale group
// (a sequence mismatch after a skip) reset the assembler.
func (r *Reassembler) Add(p Packet) (Unit, bool) {
	if !r.started || p.Header.FragmentCount != r.total || r.seq != p.Header.Sequence {
		r.reset(p.Header)
	}
	idx := int(p.Header.FragmentIndex)
	if idx < 0 || idx >= len(r.parts) {
		return Unit{}, false
	}
	if r.parts[idx] == nil {
		r.parts[idx] = append([]byte(nil), p.Payload...)
		r.have++
	}
	if r.have < r.total {
		return Unit{}, false
	}
	payload := make([]byte, 0)
	for _, part := range r.parts {
		payload = append(payload, part...)
	}
	u := Unit{
		Kind:      p.Header.Kind,
		KeyFrame:  p.Header.Flags&FlagKeyFrame != 0,
		Config:    p.Header.Flags&FlagConfig != 0,
		EndStream: p.Header.Flags&FlagEndOfStream != 0,
		Timestamp: p.Header.Timestamp,
		Payload:   payload,
	}
	r.started = false
	return u, true
}

func (r *Reassembler) reset(h Header) {
	r.total = h.FragmentCount
	r.have = 0
	r.parts = make([][]byte, h.FragmentCount)
	r.seq = h.Sequence
	r.started = true
}
