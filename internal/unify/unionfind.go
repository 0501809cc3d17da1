package unify

import (
	"sort"

	"github.com/restock-console/mapeditor/internal/models"
)

// unionFind groups grid cells into connected components.
type unionFind struct {
	parent map[models.Point]models.Point
	rank   map[models.Point]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[models.Point]models.Point),
		rank:   make(map[models.Point]int),
	}
}

func (uf *unionFind) find(p models.Point) models.Point {
	if _, exists := uf.parent[p]; !exists {
		uf.parent[p] = p
		uf.rank[p] = 0
	}
	if uf.parent[p] != p {
		uf.parent[p] = uf.find(uf.parent[p]) // path compression
	}
	return uf.parent[p]
}

func (uf *unionFind) union(a, b models.Point) {
	rootA := uf.find(a)
	rootB := uf.find(b)
	if rootA == rootB {
		return
	}
	if uf.rank[rootA] < uf.rank[rootB] {
		uf.parent[rootA] = rootB
	} else if uf.rank[rootA] > uf.rank[rootB] {
		uf.parent[rootB] = rootA
	} else {
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
}

// Components splits cells into 4-connected components. Diagonal neighbours
// are not connected. Each component is sorted row-major and components are
// ordered by their first cell, so the result does not depend on input order.
func Components(cells []models.Point) [][]models.Point {
	if len(cells) == 0 {
		return nil
	}

	uf := newUnionFind()
	present := make(map[models.Point]struct{}, len(cells))
	for _, c := range cells {
		present[c] = struct{}{}
		uf.find(c)
	}
	for c := range present {
		for _, n := range []models.Point{{X: c.X + 1, Y: c.Y}, {X: c.X, Y: c.Y + 1}} {
			if _, ok := present[n]; ok {
				uf.union(c, n)
			}
		}
	}

	groups := make(map[models.Point][]models.Point)
	for c := range present {
		root := uf.find(c)
		groups[root] = append(groups[root], c)
	}

	out := make([][]models.Point, 0, len(groups))
	for _, g := range groups {
		sortRowMajor(g)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return rowMajorLess(out[i][0], out[j][0])
	})
	return out
}

func rowMajorLess(a, b models.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

func sortRowMajor(cells []models.Point) {
	sort.Slice(cells, func(i, j int) bool {
		return rowMajorLess(cells[i], cells[j])
	})
}
