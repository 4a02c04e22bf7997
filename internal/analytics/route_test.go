package analytics

import "testing"

func TestSuggestRoute_ReturnsUnvisitedCells(t *testing.T) {
	cfg := DefaultRouteConfig()
	cfg.Steps = 3
	points := []Point2D{{X: 0, Y: 0}, {X: 0.0005, Y: 0}}

	route := SuggestRoute(points, cfg)
	if len(route) != cfg.Steps {
		t.Fatalf("len(route) = %d, want %d", len(route), cfg.Steps)
	}

	seen := make(map[Point2D]bool)
	for _, p := range route {
		if seen[p] {
			t.Errorf("duplicate waypoint %v in route", p)
		}
		seen[p] = true
	}
}

func TestSuggestRoute_EmptyInput(t *testing.T) {
	if route := SuggestRoute(nil, DefaultRouteConfig()); route != nil {
		t.Errorf("SuggestRoute(nil) = %v, want nil", route)
	}
}
