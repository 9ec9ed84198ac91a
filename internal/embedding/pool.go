package embedding

// meanPool averages the rows of a (tokens, dim) hidden-state matrix whose
// attention mask is set. The result is not normalized.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var n float32
	for t, m := range mask {
		if m == 0 || (t+1)*dim > len(hidden) {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}
