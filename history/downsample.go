package history

// Downsample reduces a chronological series to at most limit points by
// splitting it into limit contiguous buckets and emitting one mean per
// bucket. The bucket mean keeps the curve shape; a plain stride would drop
// short spikes entirely.
func Downsample(points []Point, limit int) []Point {
	if limit <= 0 || len(points) <= limit {
		return points
	}

	out := make([]Point, 0, limit)
	size := float64(len(points)) / float64(limit)
	for i := 0; i < limit; i++ {
		lo := int(float64(i) * size)
		hi := int(float64(i+1) * size)
		if i == limit-1 {
			hi = len(points)
		}
		if hi <= lo {
			hi = lo + 1
		}

		var ts, sum float64
		for _, p := range points[lo:hi] {
			ts += float64(p.TS)
			sum += p.Value
		}
		n := float64(hi - lo)
		out = append(out, Point{TS: int64(ts / n), Value: sum / n})
	}
	return out
}
