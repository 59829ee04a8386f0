package game

// CirclesOverlap checks if two circles overlap
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// RectsOverlap is the AABB test on all four edges
func RectsOverlap(x1, y1, w1, h1, x2, y2, w2, h2 float64) bool {
	return x1 <= x2+w2 && x1+w1 >= x2 && y1 <= y2+h2 && y1+h1 >= y2
}

// RectCircleOverlap clamps the circle center to the rectangle to find the
// nearest point and compares squared distances.
func RectCircleOverlap(rx, ry, rw, rh, cx, cy, r float64) bool {
	nx := Clamp(cx, rx, rx+rw)
	ny := Clamp(cy, ry, ry+rh)
	dx := cx - nx
	dy := cy - ny
	return dx*dx+dy*dy <= r*r
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
