package transform

// uniqueBy keeps the first row for each key, preserving order.
func uniqueBy[T any, K comparable](rows []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// mostPopularBy keeps the highest-scoring row for each key. Ties go to the
// earliest row and survivors keep their original order.
func mostPopularBy[T any, K comparable](rows []T, key func(T) K, score func(T) int64) []T {
	best := make(map[K]int, len(rows))
	for i, r := range rows {
		k := key(r)
		j, ok := best[k]
		if !ok || score(r) > score(rows[j]) {
			best[k] = i
		}
	}
	out := make([]T, 0, len(best))
	for i, r := range rows {
		if best[key(r)] == i {
			out = append(out, r)
		}
	}
	return out
}
