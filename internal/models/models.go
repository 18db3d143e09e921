package models

import "github.com/evyataryagoni/itemlocator/internal/geo"

// Store is a physical shop that carries items
type Store struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Address      string         `json:"address,omitempty"`
	Location     geo.Coordinate `json:"location"`
	FloorplanURL string         `json:"floorplan_url,omitempty"`
}

// FloorPosition is where an item was tagged on its store's floorplan,
// as percentages of the floorplan width and height
type FloorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Item is a product carried by exactly one store
type Item struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	StoreID  string         `json:"store_id"`
	Category string         `json:"category,omitempty"`
	Position *FloorPosition `json:"position,omitempty"`
}

// RawResult is an item joined with its owning store, as returned by a catalog
type RawResult struct {
	Item
	Store Store `json:"store"`
}

// ResultItem is a search result handed to clients.
// Distance is in kilometers and only set when the caller supplied its location.
type ResultItem struct {
	Item
	Store    Store    `json:"store"`
	Distance *float64 `json:"distance,omitempty"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchResponse is the body of a one-shot search
type SearchResponse struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []ResultItem `json:"results"`
}

// DistanceResponse is the body of a point-to-point distance request
type DistanceResponse struct {
	Kilometers float64 `json:"kilometers"`
	Label      string  `json:"label"`
}
