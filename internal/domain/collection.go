package domain

// prepend returns items with v placed at the front.
func prepend[T any](items []T, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, v)
	return append(out, items...)
}

// removeFirst drops the first entry matching match. Entries are located by
// value, never by position.
func removeFirst[T any](items []T, match func(T) bool) ([]T, bool) {
	for i := range items {
		if match(items[i]) {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}
