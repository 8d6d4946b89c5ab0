package privacy

import "strings"

// KnownValues is a case-sensitive literal matcher over a fixed list of
// strings, typically full names that no pattern can describe.
type KnownValues struct {
	values    []string
	wholeWord bool
}

// NewKnownValues builds a matcher. Empty and duplicate entries are dropped;
// order is preserved.
func NewKnownValues(values []string, wholeWord bool) *KnownValues {
	seen := make(map[string]bool, len(values))
	kept := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		kept = append(kept, v)
	}
	return &KnownValues{values: kept, wholeWord: wholeWord}
}

// Len returns the number of distinct values.
func (kv *KnownValues) Len() int {
	if kv == nil {
		return 0
	}
	return len(kv.values)
}

// Values returns a copy of the list.
func (kv *KnownValues) Values() []string {
	return append([]string(nil), kv.values...)
}

// FindAllIndex returns [start, end) pairs for every occurrence of every
// value. Occurrences of different values may overlap ("Akhil" inside
// "Akhil Shanmukha Kothamasu"); the detector resolves that.
func (kv *KnownValues) FindAllIndex(text string) [][]int {
	var out [][]int
	for _, v := range kv.values {
		offset := 0
		for {
			i := strings.Index(text[offset:], v)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(v)
			if !kv.wholeWord || atWordBoundary(text, start, end) {
				out = append(out, []int{start, end})
			}
			offset = start + 1
		}
	}
	return out
}

// atWordBoundary reports whether text[start:end] is not glued to a
// neighbouring ASCII word character.
func atWordBoundary(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
