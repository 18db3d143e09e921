package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/evyataryagoni/itemlocator/internal/search"
	"github.com/evyataryagoni/itemlocator/internal/service"
)

// errBadCoordinates is returned when a coordinate pair is incomplete or not numeric
var errBadCoordinates = errors.New("coordinates must be given as a numeric latitude and longitude pair")

// SearchHandler handles HTTP requests for item searches and distances.
// It deals with HTTP concerns only; validation and search logic live in
// the service layer.
type SearchHandler struct {
	service *service.SearchService
}

// NewSearchHandler creates a new search handler with the given service
func NewSearchHandler(service *service.SearchService) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Search handles GET /v1/search?q=<text>&lat=<lat>&lon=<lon>
// @Summary      Search items
// @Description  Find items whose name starts with the query, with the store carrying each one. When lat and lon are given, every result carries its distance in kilometers.
// @Tags         Search
// @Produce      json
// @Param        q    query      string  true   "Search text"  example(water)
// @Param        lat  query      number  false  "Caller latitude"  example(40.7128)
// @Param        lon  query      number  false  "Caller longitude"  example(-74.0060)
// @Success      200  {object}   models.SearchResponse
// @Failure      400  {object}   models.ErrorResponse  "Missing query or invalid coordinates"
// @Failure      429  {object}   models.ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}   models.ErrorResponse  "Search failed"
// @Router       /v1/search [get]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}

	origin, err := parseCoordinate(r, "lat", "lon", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Search(r.Context(), query, origin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingQuery), errors.Is(err, service.ErrInvalidLocation):
			respondError(w, http.StatusBadRequest, err.Error())
		case search.IsCancellation(err):
			// client went away; nobody is left to read a response
		default:
			respondError(w, http.StatusInternalServerError, "Search failed. Please try again.")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// InvalidateCache handles DELETE /v1/search/cache?q=<text>
// @Summary      Invalidate a cached search
// @Description  Drop the cached results for one query so the next search reads the catalog again
// @Tags         Search
// @Param        q    query      string  true  "Search text"
// @Success      204
// @Failure      400  {object}   models.ErrorResponse  "Missing query"
// @Router       /v1/search/cache [delete]
func (h *SearchHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.URL.Query().Get("q")); err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Distance handles GET /v1/distance?from_lat=&from_lon=&to_lat=&to_lon=
// @Summary      Distance between two points
// @Description  Geodesic distance on the WGS-84 ellipsoid, with a display label
// @Tags         Distance
// @Produce      json
// @Param        from_lat  query  number  true  "Start latitude"
// @Param        from_lon  query  number  true  "Start longitude"
// @Param        to_lat    query  number  true  "End latitude"
// @Param        to_lon    query  number  true  "End longitude"
// @Success      200  {object}   models.DistanceResponse
// @Failure      400  {object}   models.ErrorResponse  "Missing or invalid coordinates"
// @Router       /v1/distance [get]
func (h *SearchHandler) Distance(w http.ResponseWriter, r *http.Request) {
	from, err := parseCoordinate(r, "from_lat", "from_lon", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseCoordinate(r, "to_lat", "to_lon", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Distance(*from, *to)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// parseCoordinate reads a latitude/longitude pair from the query string.
// Both absent gives nil unless required; one without the other is an error.
func parseCoordinate(r *http.Request, latKey, lonKey string, required bool) (*geo.Coordinate, error) {
	q := r.URL.Query()
	latRaw, lonRaw := strings.TrimSpace(q.Get(latKey)), strings.TrimSpace(q.Get(lonKey))

	if latRaw == "" && lonRaw == "" && !required {
		return nil, nil
	}
	if latRaw == "" || lonRaw == "" {
		return nil, errBadCoordinates
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, errBadCoordinates
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return nil, errBadCoordinates
	}
	return &geo.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, we can't change the status code since headers are already sent
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response with consistent formatting
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{Error: message})
}
