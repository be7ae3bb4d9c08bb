// SPDX-License-Identifier: MIT
package signal

// Static is a Source with fixed buffers.
type Static struct {
	Time []uint8
	Freq []uint8
}

func (s *Static) TimeDomain() []uint8 {
	return cloneBytes(s.Time)
}

func (s *Static) FrequencyDomain() []uint8 {
	return cloneBytes(s.Freq)
}

func cloneBytes(b []uint8) []uint8 {
	if b == nil {
		return nil
	}
	out := make([]uint8, len(b))
	copy(out, b)
	return out
}
