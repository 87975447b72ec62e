// Package sequence computes minimal ordered splice sets between two versions
// of an ordered list, so downstream consumers receive deltas instead of full
// snapshots.
package sequence

// Splice is a single contiguous edit: delete DeleteCount elements at Start,
// then insert Inserted there. Start is a position in the original sequence;
// a batch of splices is applied left to right with a running offset (see
// Apply).
type Splice[T any] struct {
	Start       int
	DeleteCount int
	Inserted    []T
}

// Diff transforms before into after as an ordered splice list. Elements are
// compared by the stable identity returned by id, never by value. The
// contains predicate reports whether an identity was present anywhere in
// before; an after element that satisfies it while not matching the current
// before element is treated as already tracked, so the element occupying the
// current before position is emitted as a deletion.
//
// This is a greedy single-pass scan, not a minimal edit distance: it can
// over-report deletions for genuine reorders, but applying the result always
// reconstructs after exactly.
func Diff[T any](before, after []T, id func(T) int64, contains func(int64) bool) []Splice[T] {
	var result []Splice[T]

	push := func(start, deleteCount int, inserted []T) {
		if deleteCount == 0 && len(inserted) == 0 {
			return
		}
		if n := len(result); n > 0 && result[n-1].Start+result[n-1].DeleteCount == start {
			result[n-1].DeleteCount += deleteCount
			result[n-1].Inserted = append(result[n-1].Inserted, inserted...)
			return
		}
		result = append(result, Splice[T]{Start: start, DeleteCount: deleteCount, Inserted: append([]T(nil), inserted...)})
	}

	beforeIdx, afterIdx := 0, 0
	for {
		if beforeIdx == len(before) {
			push(beforeIdx, 0, after[afterIdx:])
			break
		}
		if afterIdx == len(after) {
			push(beforeIdx, len(before)-beforeIdx, nil)
			break
		}
		if id(before[beforeIdx]) == id(after[afterIdx]) {
			beforeIdx++
			afterIdx++
			continue
		}
		if contains(id(after[afterIdx])) {
			// The after element is already tracked elsewhere in before, so
			// whatever sits at the current before position was removed.
			push(beforeIdx, 1, nil)
			beforeIdx++
			continue
		}
		push(beforeIdx, 0, after[afterIdx:afterIdx+1])
		afterIdx++
	}

	return result
}

// Apply replays a splice batch produced by Diff against before and returns
// the reconstructed sequence. Splice starts refer to positions in before, so
// a running offset accounts for earlier insertions and deletions.
func Apply[T any](before []T, splices []Splice[T]) []T {
	out := append([]T(nil), before...)
	offset := 0
	for _, splice := range splices {
		start := splice.Start + offset
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + splice.DeleteCount
		if end > len(out) {
			end = len(out)
		}
		next := make([]T, 0, len(out)-(end-start)+len(splice.Inserted))
		next = append(next, out[:start]...)
		next = append(next, splice.Inserted...)
		next = append(next, out[end:]...)
		out = next
		offset += len(splice.Inserted) - splice.DeleteCount
	}
	return out
}
