package domain

// Cluster groups the per-bureau records that describe one real-world
// tradeline. Each slot holds at most one record from its bureau; a cluster is
// never produced with zero populated slots and is immutable once linked.
type Cluster struct {
	Experian   *AccountRecord `json:"experian,omitempty"`
	Equifax    *AccountRecord `json:"equifax,omitempty"`
	TransUnion *AccountRecord `json:"transunion,omitempty"`
}

// Slot returns the record for a bureau, or nil if the slot is empty.
func (c *Cluster) Slot(b Bureau) *AccountRecord {
	switch b {
	case BureauExperian:
		return c.Experian
	case BureauEquifax:
		return c.Equifax
	case BureauTransUnion:
		return c.TransUnion
	}
	return nil
}

// SetSlot fills a bureau slot. It is only called during linking.
func (c *Cluster) SetSlot(b Bureau, r *AccountRecord) {
	switch b {
	case BureauExperian:
		c.Experian = r
	case BureauEquifax:
		c.Equifax = r
	case BureauTransUnion:
		c.TransUnion = r
	}
}

// Bureaus returns the populated bureaus in priority order.
func (c *Cluster) Bureaus() []Bureau {
	out := make([]Bureau, 0, 3)
	for _, b := range AllBureaus {
		if c.Slot(b) != nil {
			out = append(out, b)
		}
	}
	return out
}

// Records returns the populated records in bureau priority order.
func (c *Cluster) Records() []*AccountRecord {
	out := make([]*AccountRecord, 0, 3)
	for _, b := range AllBureaus {
		if r := c.Slot(b); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Coverage is the number of populated slots (1..3).
func (c *Cluster) Coverage() int {
	n := 0
	for _, b := range AllBureaus {
		if c.Slot(b) != nil {
			n++
		}
	}
	return n
}

// Representative returns the record used for display and scoring fields,
// chosen with fixed bureau priority: Experian, then Equifax, then TransUnion.
func (c *Cluster) Representative() *AccountRecord {
	for _, b := range AllBureaus {
		if r := c.Slot(b); r != nil {
			return r
		}
	}
	return nil
}
