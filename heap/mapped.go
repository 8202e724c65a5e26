package heap

import "github.com/joshuapare/osmem/internal/format"

// mapBlock obtains an independent mapping of exactly blk bytes and tags it
// StatusMapped. Mapping failure is fatal.
func (h *Heap) mapBlock(blk int, zero bool) (Ptr, error) {
	id, ok := h.regionID()
	if !ok {
		return Nil, h.fatal("map", blk, errRegionsExhausted)
	}
	data, err := h.p.Map(blk)
	if err != nil {
		return Nil, h.fatal("map", blk, err)
	}

	b := format.At(data, 0)
	b.Init(format.Header{
		Size:   blk,
		Status: format.StatusMapped,
		Prev:   format.NoBlock,
		Next:   format.NoBlock,
	})
	if zero {
		clear(b.Payload())
	}
	h.maps[id] = data

	h.stats.MapCalls++
	h.stats.MappedBytes += int64(blk)
	if h.debug {
		h.log.Debug("map", "region", id, "bytes", blk, "zero", zero)
	}
	return MakePtr(id, format.HeaderSize), nil
}

// unmapBlock returns a mapping to the provider. Unmapping failure is fatal.
func (h *Heap) unmapBlock(id uint32, data []byte) error {
	size := format.At(data, 0).Size()
	if err := h.p.Unmap(data); err != nil {
		return h.fatal("unmap", size, err)
	}
	delete(h.maps, id)

	h.stats.UnmapCalls++
	h.stats.MappedBytes -= int64(size)
	if h.debug {
		h.log.Debug("unmap", "region", id, "bytes", size)
	}
	return nil
}

// regionID hands out fresh ids first so stale pointers are less likely to
// alias a newer mapping. Once the id space is used up it searches for ids
// whose mappings have been released, resuming where the last search ended.
func (h *Heap) regionID() (uint32, bool) {
	if h.nextID < maxRegionID {
		h.nextID++
		return h.nextID, true
	}
	if len(h.maps) >= maxRegionID {
		return 0, false
	}
	for {
		h.recycle = h.recycle%maxRegionID + 1
		if _, live := h.maps[h.recycle]; !live {
			return h.recycle, true
		}
	}
}
