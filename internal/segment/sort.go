package segment

import (
	"slices"
	"strconv"
	"strings"
)

// SortByNumber returns a copy of reqs ordered by identifier, comparing the
// dotted parts numerically ("1.2" < "1.10"). Equal identifiers keep their
// document order.
func SortByNumber(reqs []Requirement) []Requirement {
	out := slices.Clone(reqs)
	if out == nil {
		out = []Requirement{}
	}
	slices.SortStableFunc(out, func(a, b Requirement) int {
		return CompareNumbers(a.ReqNum, b.ReqNum)
	})
	return out
}

// CompareNumbers orders dotted requirement identifiers part by part.
// Missing parts count as zero, non-numeric parts sort after numeric ones.
func CompareNumbers(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(pa), len(pb)); i++ {
		x, xok := part(pa, i)
		y, yok := part(pb, i)
		switch {
		case xok && !yok:
			return -1
		case !xok && yok:
			return 1
		case x != y:
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func part(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, true
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0, false
	}
	return n, true
}
