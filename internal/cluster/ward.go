package cluster

import "math"

// merge records a single step of the dendrogram. Nodes below n are the
// original points; node n+i is the cluster created by step i.
type merge struct {
	a, b     int
	distance float64
	size     int
}

// squaredDistances returns the full squared Euclidean distance matrix,
// sized to also hold every cluster created during linkage.
func squaredDistances(points [][]float64) [][]float64 {
	n := len(points)
	d := make([][]float64, 2*n-1)
	for i := range d {
		d[i] = make([]float64, 2*n-1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sum float64
			for k := range points[i] {
				diff := points[i][k] - points[j][k]
				sum += diff * diff
			}
			d[i][j], d[j][i] = sum, sum
		}
	}
	return d
}

// wardLinkage performs Ward's agglomerative clustering using the
// Lance-Williams recurrence. Merge distances are reported as Euclidean.
func wardLinkage(points [][]float64) []merge {
	n := len(points)
	if n < 2 {
		return nil
	}
	d := squaredDistances(points)
	size := make([]int, 2*n-1)
	active := make([]bool, 2*n-1)
	for i := 0; i < n; i++ {
		size[i] = 1
		active[i] = true
	}

	merges := make([]merge, 0, n-1)
	for node := n; node < 2*n-1; node++ {
		a, b := -1, -1
		best := math.Inf(1)
		for i := 0; i < node; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < node; j++ {
				if active[j] && d[i][j] < best {
					best, a, b = d[i][j], i, j
				}
			}
		}

		active[a], active[b] = false, false
		size[node] = size[a] + size[b]
		na, nb := float64(size[a]), float64(size[b])
		for k := 0; k < node; k++ {
			if !active[k] {
				continue
			}
			nk := float64(size[k])
			v := ((nk+na)*d[a][k] + (nk+nb)*d[b][k] - nk*best) / (nk + na + nb)
			d[node][k], d[k][node] = v, v
		}
		active[node] = true
		merges = append(merges, merge{a: a, b: b, distance: math.Sqrt(best), size: size[node]})
	}
	return merges
}

// cut assigns sequential cluster labels to the n original points, keeping
// only merges at or below threshold.
func cut(merges []merge, n int, threshold float64) []int {
	parent := make([]int, n+len(merges))
	for i := range parent {
		parent[i] = i
	}
	for step, m := range merges {
		if m.distance > threshold {
			continue
		}
		node := n + step
		parent[root(parent, m.a)] = node
		parent[root(parent, m.b)] = node
	}

	labels := make([]int, n)
	ids := make(map[int]int)
	for i := 0; i < n; i++ {
		r := root(parent, i)
		id, ok := ids[r]
		if !ok {
			id = len(ids)
			ids[r] = id
		}
		labels[i] = id
	}
	return labels
}

func root(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}
