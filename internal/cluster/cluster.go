// Package cluster groups substances whose effect profiles are alike.
package cluster

import "sort"

// DefaultThreshold is the Ward merge distance up to which substances are
// grouped. Two single substances at distance d differ in d² effects.
const DefaultThreshold = 4.0

// Group is a set of substances with similar effects.
type Group struct {
	Substances []string
	// Shared lists the effects every member has, in the order of the
	// first member's list.
	Shared []string
}

// Effects clusters substances by their effect lists. Substances without
// effects are ignored and only groups of two or more are returned, largest
// first. A non-positive threshold means DefaultThreshold.
func Effects(effects map[string][]string, threshold float64) []Group {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	ids := make([]string, 0, len(effects))
	for id, list := range effects {
		if len(list) > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil
	}
	sort.Strings(ids)

	labels := cut(wardLinkage(profiles(ids, effects)), len(ids), threshold)
	members := make(map[int][]string)
	for i, label := range labels {
		members[label] = append(members[label], ids[i])
	}

	var groups []Group
	for _, m := range members {
		if len(m) < 2 {
			continue
		}
		groups = append(groups, Group{Substances: m, Shared: shared(m, effects)})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Substances) != len(groups[j].Substances) {
			return len(groups[i].Substances) > len(groups[j].Substances)
		}
		return groups[i].Substances[0] < groups[j].Substances[0]
	})
	return groups
}

// profiles turns effect lists into binary vectors over every known effect.
func profiles(ids []string, effects map[string][]string) [][]float64 {
	index := make(map[string]int)
	for _, id := range ids {
		for _, e := range effects[id] {
			if _, ok := index[e]; !ok {
				index[e] = len(index)
			}
		}
	}

	points := make([][]float64, len(ids))
	for i, id := range ids {
		points[i] = make([]float64, len(index))
		for _, e := range effects[id] {
			points[i][index[e]] = 1
		}
	}
	return points
}

func shared(members []string, effects map[string][]string) []string {
	var out []string
	for _, e := range effects[members[0]] {
		common := true
		for _, id := range members[1:] {
			if !contains(effects[id], e) {
				common = false
				break
			}
		}
		if common {
			out = append(out, e)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
