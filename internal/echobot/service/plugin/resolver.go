package plugin

import (
	"sort"
)

// resolveOrder returns plugin indices in a topological order of their
// dependencies. Ready plugins are always taken lowest registration index
// first, so the order is deterministic and, absent constraints, equals
// registration order.
func resolveOrder(plugins []Plugin) ([]int, error) {
	byName := make(map[string][]int, len(plugins))
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Meta().Name
		byName[names[i]] = append(byName[names[i]], i)
	}

	inDegree := make([]int, len(plugins))
	dependents := make([][]int, len(plugins))

	for i, p := range plugins {
		for _, dep := range p.Dependencies() {
			providers, ok := byName[dep.Name]
			if !ok {
				if dep.Optional {
					continue
				}
				return nil, &MissingDependencyError{Plugin: names[i], Dependency: dep.Name}
			}
			for _, j := range providers {
				dependents[j] = append(dependents[j], i)
				inDegree[i]++
			}
		}
	}

	var ready []int
	for i := range plugins {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(plugins))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, d := range dependents[next] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = insertSorted(ready, d)
			}
		}
	}

	if len(order) != len(plugins) {
		placed := make([]bool, len(plugins))
		for _, i := range order {
			placed[i] = true
		}
		var participants []string
		for i := range plugins {
			if !placed[i] {
				participants = append(participants, names[i])
			}
		}
		return nil, &DependencyCycleError{Participants: participants}
	}
	return order, nil
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
