package hnsw

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/hnswbench/internal/graph"
)

// Stats returns a snapshot of the graph shape. It walks every node and is
// meant for diagnostics, not the hot path.
func (h *HNSW) Stats() Stats {
	degrees := make([][]float64, h.graph.NumLayers())

	h.graph.ForEach(func(n *graph.Node) bool {
		for l := 0; l <= n.Level() && l < len(degrees); l++ {
			degrees[l] = append(degrees[l], float64(len(n.Links(l))))
		}
		return true
	})

	st := Stats{
		Nodes:       h.graph.Len(),
		Deleted:     int(h.deleted.Load()),
		MaxLevel:    h.graph.MaxLevel(),
		VectorBytes: h.store.Bytes(),
		Parameters: map[string]string{
			"dimension":        strconv.Itoa(h.opts.Dimension),
			"metric":           h.opts.Metric.String(),
			"m":                strconv.Itoa(h.opts.M),
			"m0":               strconv.Itoa(h.opts.M0),
			"ef_construction":  strconv.Itoa(h.opts.EFConstruction),
			"level_multiplier": strconv.FormatFloat(h.opts.LevelMultiplier, 'g', -1, 64),
			"cell_type":        h.opts.CellType.String(),
		},
		Levels: make([]LevelStats, 0, len(degrees)),
	}
	if ep, ok := h.graph.Entry(); ok {
		st.EntryPoint = ep.ID
	}

	for l, ds := range degrees {
		ls := LevelStats{
			Level:    l,
			Nodes:    len(ds),
			Capacity: h.graph.Capacity(l),
		}
		if len(ds) > 0 {
			for _, d := range ds {
				ls.Connections += int(d)
				ls.MaxDegree = max(ls.MaxDegree, int(d))
			}
			if len(ds) > 1 {
				ls.AvgDegree, ls.StdDegree = stat.MeanStdDev(ds, nil)
			} else {
				ls.AvgDegree = ds[0]
			}
		}
		st.Levels = append(st.Levels, ls)
	}

	return st
}
