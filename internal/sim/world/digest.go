package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// StateDigest hashes the tick, the counters and every live agent (identity,
// position, states, traits) in ID order. Two worlds built from the same
// config and seed and stepped the same number of times agree on it.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.tick.Load())
	for _, v := range []int{w.pop.Susceptible, w.pop.Infected, w.pop.Carrier, w.pop.Recovered, w.pop.Escaped} {
		digestWriteI64(h, &tmp, int64(v))
	}
	for _, a := range w.Agents() {
		digestWriteU64(h, &tmp, a.ID)
		h.Write([]byte(a.kind))
		digestWriteI64(h, &tmp, int64(a.Pos.X))
		digestWriteI64(h, &tmp, int64(a.Pos.Y))
		for _, s := range a.StateNames() {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
		tr := a.Traits
		for _, v := range []int{
			tr.TimeAlive, tr.TimeAtInfection, tr.TimeAtReproduction, tr.ZombieKills,
			tr.Direction.X, tr.Direction.Y, tr.RoadDir.X, tr.RoadDir.Y,
		} {
			digestWriteI64(h, &tmp, int64(v))
		}
		h.Write([]byte{boolByte(tr.Infected), boolByte(tr.HasReproduced)})
		digestWriteU64(h, &tmp, tr.TargetID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
