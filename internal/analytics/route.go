package analytics

// GridCell is a discretized (lat, lon) grid coordinate.
type GridCell struct {
	X, Y int
}

// RouteConfig tunes SuggestRoute's grid resolution and search behavior.
type RouteConfig struct {
	CellSize     float64 // grid resolution in degrees
	Steps        int     // number of waypoints to produce
	SearchRadius int     // how far to search for an unvisited cell, in grid cells
}

// DefaultRouteConfig mirrors the reference implementation's defaults.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{CellSize: 0.001, Steps: 5, SearchRadius: 5}
}

// SuggestRoute proposes the next waypoints to cover unvisited ground given
// a chronological trail of (lat, lon) points already driven. It marks
// every cell the trail has touched as visited, then greedily picks the
// nearest unvisited cell (by Manhattan-square search around the current
// cell) for each of cfg.Steps waypoints, returning each chosen cell's
// center coordinates.
func SuggestRoute(points []Point2D, cfg RouteConfig) []Point2D {
	if len(points) == 0 {
		return nil
	}

	toCell := func(p Point2D) GridCell {
		return GridCell{X: floorDiv(p.X, cfg.CellSize), Y: floorDiv(p.Y, cfg.CellSize)}
	}

	visited := make(map[GridCell]bool, len(points))
	for _, p := range points {
		visited[toCell(p)] = true
	}
	cur := toCell(points[len(points)-1])

	var route []Point2D
	for i := 0; i < cfg.Steps; i++ {
		best, found := nearestUnvisited(cur, visited, cfg.SearchRadius)
		if !found {
			break
		}
		visited[best] = true
		cur = best
		route = append(route, Point2D{
			X: (float64(best.X) + 0.5) * cfg.CellSize,
			Y: (float64(best.Y) + 0.5) * cfg.CellSize,
		})
	}
	return route
}

func nearestUnvisited(cur GridCell, visited map[GridCell]bool, radius int) (GridCell, bool) {
	var best GridCell
	bestDist := -1
	found := false

	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			cell := GridCell{X: cur.X + dx, Y: cur.Y + dy}
			if visited[cell] {
				continue
			}
			dist := dx*dx + dy*dy
			if !found || dist < bestDist {
				best = cell
				bestDist = dist
				found = true
			}
		}
	}
	return best, found
}

func floorDiv(v, cellSize float64) int {
	q := v / cellSize
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}
