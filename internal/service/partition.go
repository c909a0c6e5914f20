package service

// Partition splits n items over k assignees as evenly as possible. Entry i is
// the size of assignee i's contiguous block: n/k, plus one for the first n%k
// assignees. It returns nil when k is not positive.
func Partition(n, k int) []int {
	if k <= 0 {
		return nil
	}
	if n < 0 {
		n = 0
	}
	base, rem := n/k, n%k
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}
