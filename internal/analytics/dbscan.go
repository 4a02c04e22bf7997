package analytics

import "math"

// Point2D is a generic (lat, lon) or (x, y) sample.
type Point2D struct {
	X, Y float64
}

// DBSCAN clusters points using Euclidean distance with neighborhood radius
// eps and minSamples points (including the point itself) required to seed
// a dense region. It returns one label per input point: cluster labels
// start at 0, and -1 marks a noise point that belongs to no cluster.
func DBSCAN(points []Point2D, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	visited := make([]bool, n)

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if distance2D(points[i], points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neigh := neighbors(i)
		if len(neigh) < minSamples {
			continue
		}

		labels[i] = cluster
		queue := append([]int{}, neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				jNeigh := neighbors(j)
				if len(jNeigh) >= minSamples {
					queue = append(queue, jNeigh...)
				}
			}
			if labels[j] == -1 {
				labels[j] = cluster
			}
		}
		cluster++
	}
	return labels
}

func distance2D(a, b Point2D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
