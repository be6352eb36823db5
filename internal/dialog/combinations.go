package dialog

// Combinations returns every non-empty subset of set, 2^n-1 in total. Subsets
// are grouped by increasing size; within a size they follow the input
// index order, smallest head first. Each subset is a fresh slice.
func Combinations[T any](set []T) [][]T {
	var out [][]T
	for k := 1; k <= len(set); k++ {
		out = append(out, kCombinations(set, k)...)
	}
	return out
}

func kCombinations[T any](set []T, k int) [][]T {
	if k <= 0 || k > len(set) {
		return nil
	}
	if k == len(set) {
		return [][]T{append([]T(nil), set...)}
	}
	if k == 1 {
		out := make([][]T, 0, len(set))
		for _, v := range set {
			out = append(out, []T{v})
		}
		return out
	}

	var out [][]T
	for i := 0; i <= len(set)-k; i++ {
		for _, tail := range kCombinations(set[i+1:], k-1) {
			comb := make([]T, 0, k)
			comb = append(comb, set[i])
			comb = append(comb, tail...)
			out = append(out, comb)
		}
	}
	return out
}
