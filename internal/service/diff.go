// Package service implements the apply-verb for each resource kind: verify
// if already matching, create if absent, update if drifting.
package service

import "sort"

// subsetEqual reports whether every key declared in want is present in got
// with an equal value. Extra keys in got (server-defaulted fields Vault
// returns but the manifest never declared) are ignored, per the three-way
// diff's "subset" rule: remote-only fields must never provoke an update.
func subsetEqual(want, got map[string]any) (equal bool, diverged []string) {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok || !deepEqual(wv, gv) {
			diverged = append(diverged, k)
		}
	}
	sort.Strings(diverged)
	return len(diverged) == 0, diverged
}

// deepEqual compares declared and remote values with order-insensitivity
// for slices of primitives (password policy rules, allowed-domains lists,
// ...), since Vault does not guarantee list order is preserved round-trip.
func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !deepEqual(v, bv[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		return unorderedEqual(av, bv)
	default:
		return looseEqual(a, b)
	}
}

// looseEqual compares scalars, tolerating the int/float64 split that YAML
// decoding and Vault's JSON responses introduce for the same logical value.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// unorderedEqual reports whether a and b contain the same elements
// regardless of order. O(n^2) but lists here are short (charset rules,
// allowed domains).
func unorderedEqual(a, b []any) bool {
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if deepEqual(av, bv) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
