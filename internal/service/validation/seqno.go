package validation

import "sort"

// checkSeqNos applies the shared list-shape invariant: sequence numbers
// must be positive, unique, and (once sorted) exactly 1..n. Storage
// order is irrelevant. At most one finding per group, carrying the most
// specific violated property.
func (c *collector) checkSeqNos(seqs []int, fieldPrefix, section string) {
	if len(seqs) == 0 {
		return
	}

	for _, seq := range seqs {
		if seq <= 0 {
			c.add(fieldPrefix, "序号必须从 1 开始", section, ruleSeqNo, nil)
			return
		}
	}

	seen := make(map[int]struct{}, len(seqs))
	for _, seq := range seqs {
		if _, ok := seen[seq]; ok {
			c.add(fieldPrefix, "序号重复", section, ruleSeqNo, nil)
			return
		}
		seen[seq] = struct{}{}
	}

	sorted := append([]int(nil), seqs...)
	sort.Ints(sorted)
	for i, seq := range sorted {
		if seq != i+1 {
			c.add(fieldPrefix, "序号不连续（禁止跳号空洞）", section, ruleSeqNo, nil)
			return
		}
	}
}
