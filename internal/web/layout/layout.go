// Package layout arranges article cards for the two-column blog index.
//
// The index uses CSS columns, which fill top to bottom and then left to
// right. Putting the even-indexed items first makes the cards read left to
// right, row by row.
package layout

// Columns splits items into the even-indexed and odd-indexed positions,
// keeping their relative order.
func Columns[T any](items []T) (left, right []T) {
	left = make([]T, 0, (len(items)+1)/2)
	right = make([]T, 0, len(items)/2)
	for i, item := range items {
		if i%2 == 0 {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	return left, right
}

// Reorder returns the even-indexed items followed by the odd-indexed ones.
// Inputs with fewer than two items are returned as is.
func Reorder[T any](items []T) []T {
	if len(items) < 2 {
		return items
	}
	left, right := Columns(items)
	return append(left, right...)
}
