package encoding

// structSize lists the byte size of every member in encoding order, padding
// included, so a struct's alignment is the largest entry.
type structSize []int

func (ss structSize) Add(size structSize) structSize {
	return append(ss, size...)
}

func (ss structSize) Size() int {
	total := 0
	for _, n := range ss {
		total += n
	}
	return total
}

func (ss structSize) Max() int {
	largest := 0
	for _, n := range ss {
		largest = max(largest, n)
	}
	return largest
}

// padded appends the tail padding that rounds the total to the alignment and
// reports its length.
func (ss structSize) padded() (structSize, int) {
	total := ss.Size()
	if pad := align(total, ss.Max()) - total; pad > 0 {
		return append(ss, pad), pad
	}
	return ss, 0
}
