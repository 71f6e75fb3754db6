package update

import (
	"strconv"
	"strings"
)

// Compare compares two dotted version strings.
// Returns:
//
//	-1 if a < b
//	 0 if a == b
//	 1 if a > b
//
// An optional leading "v" is ignored and missing trailing components count
// as zero, so "1.0" equals "v1.0.0". Components that are not plain
// non-negative integers are dropped rather than rejected: "0.4.0-beta"
// compares as "0.4". Callers tagging pre-releases that way should be aware
// such a tag can compare equal to, or older than, a shorter numeric tag.
func Compare(a, b string) int {
	as := normalizeVersion(a)
	bs := normalizeVersion(b)

	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		if c := compareInt(componentAt(as, i), componentAt(bs, i)); c != 0 {
			return c
		}
	}
	return 0
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(current, candidate string) bool {
	return Compare(current, candidate) < 0
}

// normalizeVersion returns the numeric components of a version string.
func normalizeVersion(s string) []uint64 {
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func componentAt(parts []uint64, i int) uint64 {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func compareInt(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
