// router_test.go: route matching and default writer fallback tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouterUnfilteredRouteMatchesEverything(t *testing.T) {
	router := NewRouter("fallback")
	router.AddRoute(Route{Name: "catch-all", Writers: []string{"audit"}})

	targets := router.Dispatch(&Record{Level: Info})
	assert.ElementsMatch(t, []string{"audit", "fallback"}, targets)
}

func TestRouterStopPropagationSkipsDefaultAndLaterRoutes(t *testing.T) {
	router := NewRouter("fallback")
	router.AddRoute(Route{Name: "errors", Filter: &LevelFilter{Min: Error}, Writers: []string{"errlog"}, StopPropagation: true})
	router.AddRoute(Route{Name: "catch-all", Writers: []string{"audit"}})

	targets := router.Dispatch(&Record{Level: Error})
	assert.Equal(t, []string{"errlog"}, targets)
}

func TestRouterFallsThroughToDefaultWhenNoRouteMatches(t *testing.T) {
	router := NewRouter("fallback")
	router.AddRoute(Route{Name: "errors", Filter: &LevelFilter{Min: Error}, Writers: []string{"errlog"}})

	targets := router.Dispatch(&Record{Level: Info})
	assert.Equal(t, []string{"fallback"}, targets)
}

func TestRouterDedupesWriterNamesAcrossRoutes(t *testing.T) {
	router := NewRouter("shared")
	router.AddRoute(Route{Name: "a", Writers: []string{"shared", "extra"}})

	targets := router.Dispatch(&Record{Level: Info})
	assert.Equal(t, []string{"shared", "extra"}, targets)
}
