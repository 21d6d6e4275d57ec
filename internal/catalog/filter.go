package catalog

import "sort"

// UniqueNames returns the distinct material names, sorted.
func UniqueNames(mats []Material) []string {
	seen := make(map[string]bool, len(mats))
	names := make([]string, 0)
	for _, m := range mats {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// FilterByName keeps materials whose name is in names, in input order.
// Input order matters: it is the route builder's tie-break.
func FilterByName(mats []Material, names []string) []Material {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]Material, 0, len(mats))
	for _, m := range mats {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out
}
