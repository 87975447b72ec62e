// Package display decides how a multi-representation output payload gets
// rendered: it ranks mimetypes against layered glob-pattern preference lists,
// keeps the registry of pluggable renderers, and resolves each output into an
// ordered candidate list.
package display

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Order holds the three prioritized pattern lists used to rank mimetypes.
// User patterns outrank document patterns, which outrank the core defaults.
type Order struct {
	userOrder     []string
	documentOrder []string
	defaultOrder  []string
}

func NewOrder(defaultOrder []string) *Order {
	return &Order{defaultOrder: normalizePatterns(defaultOrder)}
}

func (o *Order) SetUserOrder(patterns []string) {
	o.userOrder = normalizePatterns(patterns)
}

func (o *Order) SetDocumentOrder(patterns []string) {
	o.documentOrder = normalizePatterns(patterns)
}

func (o *Order) SetDefaultOrder(patterns []string) {
	o.defaultOrder = normalizePatterns(patterns)
}

func (o *Order) UserOrder() []string {
	return append([]string(nil), o.userOrder...)
}

// Rank returns the priority of a mimetype: the index of the first matching
// pattern scanning user, then document, then default lists, each list offset
// by the lengths scanned before it. A mimetype no pattern matches ranks after
// every matched one, stably at the back.
func (o *Order) Rank(mimeType string) int {
	mimeType = strings.TrimSpace(mimeType)
	offset := 0
	for _, list := range [][]string{o.userOrder, o.documentOrder, o.defaultOrder} {
		for i, pattern := range list {
			if matchMime(pattern, mimeType) {
				return offset + i
			}
		}
		offset += len(list)
	}
	return offset
}

// Sort orders mimetypes by ascending rank. Ties keep lexicographic order so
// the result is deterministic regardless of map iteration order upstream.
func (o *Order) Sort(mimeTypes []string) []string {
	out := append([]string(nil), mimeTypes...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := o.Rank(out[i]), o.Rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func matchMime(pattern, mimeType string) bool {
	if pattern == "" || mimeType == "" {
		return false
	}
	if pattern == mimeType {
		return true
	}
	ok, err := doublestar.Match(pattern, mimeType)
	if err != nil {
		return false
	}
	return ok
}

func normalizePatterns(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		out = append(out, pattern)
	}
	return out
}
