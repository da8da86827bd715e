package media

import (
	"encoding/json"
	"sort"

	"ffkit/internal/media/ffprobe"
)

// FindStreamsByKey returns the indices of streams whose decoded tree contains
// key at any depth. When subset is empty every stream is searched; unknown
// indices in subset are ignored.
func (d *Descriptor) FindStreamsByKey(key string, subset ...int) []int {
	return d.findStreams(subset, func(tree map[string]any) bool {
		return containsKey(tree, key)
	})
}

// FindStreamsByValue returns the indices of streams whose decoded tree holds
// value at any depth. Numbers compare by value regardless of their Go type.
func (d *Descriptor) FindStreamsByValue(value any, subset ...int) []int {
	return d.findStreams(subset, func(tree map[string]any) bool {
		return containsValue(tree, value)
	})
}

// Value looks up key on the stream with the given index: top level first,
// then nested maps in sorted key order. The boolean is false when the stream
// or the key does not exist.
func (d *Descriptor) Value(index int, key string) (any, bool) {
	stream, ok := d.Stream(index)
	if !ok {
		return nil, false
	}
	return Lookup(stream, key)
}

// Lookup performs the Value search on a single stream.
func Lookup(stream ffprobe.Stream, key string) (any, bool) {
	return lookupTree(stream.Fields, key)
}

func (d *Descriptor) findStreams(subset []int, match func(map[string]any) bool) []int {
	candidates := subset
	if len(candidates) == 0 {
		candidates = make([]int, 0, len(d.parsed.streams))
		for _, stream := range d.parsed.streams {
			candidates = append(candidates, stream.Index)
		}
	}
	found := make([]int, 0)
	for _, index := range candidates {
		stream, ok := d.Stream(index)
		if !ok {
			continue
		}
		if match(stream.Fields) {
			found = append(found, index)
		}
	}
	return found
}

func lookupTree(tree map[string]any, key string) (any, bool) {
	if tree == nil {
		return nil, false
	}
	if value, ok := tree[key]; ok {
		return value, true
	}
	for _, k := range sortedKeys(tree) {
		if nested, ok := tree[k].(map[string]any); ok {
			if value, found := lookupTree(nested, key); found {
				return value, true
			}
		}
	}
	return nil, false
}

func containsKey(node any, key string) bool {
	switch v := node.(type) {
	case map[string]any:
		if _, ok := v[key]; ok {
			return true
		}
		for _, child := range v {
			if containsKey(child, key) {
				return true
			}
		}
	case []any:
		for _, child := range v {
			if containsKey(child, key) {
				return true
			}
		}
	}
	return false
}

func containsValue(node any, want any) bool {
	switch v := node.(type) {
	case map[string]any:
		for _, child := range v {
			if containsValue(child, want) {
				return true
			}
		}
		return false
	case []any:
		for _, child := range v {
			if containsValue(child, want) {
				return true
			}
		}
		return false
	default:
		return valuesEqual(v, want)
	}
}

func valuesEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func sortedKeys(tree map[string]any) []string {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
