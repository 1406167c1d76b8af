package fairness

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// CompareGroups partitions records by groupOf and computes a Report per
// partition. Every category present in the input appears exactly once in the
// result; categories are never invented or dropped. A partition lacking the
// data for one metric still reports its remaining metrics: one group's
// undefined FPR never suppresses another group's (or its own) defined rates.
func CompareGroups(records []Record, groupOf GroupFunc) map[Category]Report {
	matrices := BuildByGroup(records, groupOf)
	out := make(map[Category]Report, len(matrices))
	for g, cm := range matrices {
		out[g] = Compute(cm)
	}
	return out
}

// BuildByGroupParallel is BuildByGroup over sharded input: each worker builds
// partial per-group matrices for its shard and the partials are merged by
// matrix addition, which is commutative and associative. The result is
// identical to the sequential form. The only error source is ctx.
func BuildByGroupParallel(ctx context.Context, records []Record, groupOf GroupFunc) (map[Category]ConfusionMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	workers := runtime.NumCPU()
	if workers > len(records) {
		workers = len(records)
	}
	if workers <= 1 {
		return BuildByGroup(records, groupOf), nil
	}

	partials := make([]map[Category]ConfusionMatrix, workers)
	chunk := (len(records) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		lo := i * chunk
		hi := lo + chunk
		if hi > len(records) {
			hi = len(records)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = BuildByGroup(records[lo:hi], groupOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[Category]ConfusionMatrix)
	for _, part := range partials {
		for cat, cm := range part {
			merged[cat] = merged[cat].Merge(cm)
		}
	}
	return merged, nil
}

// CompareGroupsParallel computes the same result as CompareGroups over
// sharded input.
func CompareGroupsParallel(ctx context.Context, records []Record, groupOf GroupFunc) (map[Category]Report, error) {
	matrices, err := BuildByGroupParallel(ctx, records, groupOf)
	if err != nil {
		return nil, err
	}
	out := make(map[Category]Report, len(matrices))
	for cat, cm := range matrices {
		out[cat] = Compute(cm)
	}
	return out, nil
}

// SortedCategories returns the map's categories in lexical order, for
// deterministic iteration over group results.
func SortedCategories(matrices map[Category]ConfusionMatrix) []Category {
	cats := make([]Category, 0, len(matrices))
	for cat := range matrices {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
