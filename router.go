// router.go: rule-based record dispatch to writer sets
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

// Route pairs a filter with the set of writer names it dispatches to. When
// StopPropagation is true and the route matches, the router does not fall
// through to the default writer set or to subsequent routes.
type Route struct {
	Name            string
	Filter          Filter
	Writers         []string
	StopPropagation bool
}

// Router evaluates an ordered list of routes against each record and
// decides which named writers receive it. A record matching no route, or
// matching only routes without StopPropagation, also reaches the default
// writer set.
type Router struct {
	routes         []Route
	defaultWriters []string
}

// NewRouter creates a Router with the given default writer set (used when
// no route matches, or no matching route stops propagation).
func NewRouter(defaultWriters ...string) *Router {
	return &Router{defaultWriters: defaultWriters}
}

// AddRoute appends a route, evaluated in the order added.
func (rt *Router) AddRoute(route Route) {
	rt.routes = append(rt.routes, route)
}

// Routes returns the configured routes in evaluation order.
func (rt *Router) Routes() []Route {
	return rt.routes
}

// Dispatch returns the set of writer names that should receive r.
func (rt *Router) Dispatch(r *Record) []string {
	var targets []string
	seen := make(map[string]bool)
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				targets = append(targets, n)
			}
		}
	}

	for _, route := range rt.routes {
		if route.Filter != nil && !route.Filter.Allow(r) {
			continue
		}
		add(route.Writers)
		if route.StopPropagation {
			return targets
		}
	}

	add(rt.defaultWriters)
	return targets
}
