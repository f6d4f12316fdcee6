package api

import (
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/routeindex"
)

// SummaryResponse is returned by GET /.
type SummaryResponse = replay.Summary

// RouteItem is one served route in GET /-/routes.
type RouteItem struct {
	Route       string `json:"route" example:"/_cat/aliases"`
	Pattern     string `json:"pattern" example:"/_cat/aliases?v&s=alias,index"`
	Name        string `json:"name,omitempty" example:"cat_aliases"`
	Source      string `json:"source" example:"cat_aliases.txt"`
	ContentType string `json:"content_type" example:"text/plain; charset=utf-8"`
}

// RouteListResponse wraps the route listing.
type RouteListResponse struct {
	Routes []RouteItem `json:"routes"`
	Total  int         `json:"total" example:"42"`
}

func routeItem(e routeindex.Entry) RouteItem {
	return RouteItem{
		Route:       e.Route,
		Pattern:     e.Pattern,
		Name:        e.Name,
		Source:      e.Source(),
		ContentType: e.ContentType,
	}
}
