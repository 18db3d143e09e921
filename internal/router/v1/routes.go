package v1

import (
	"github.com/evyataryagoni/itemlocator/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures all v1 API routes
// This function is called by the main router to setup /v1/* endpoints
func SetupRoutes(searchHandler *handler.SearchHandler, liveHandler *handler.LiveHandler) chi.Router {
	r := chi.NewRouter()

	r.Route("/search", func(r chi.Router) {
		// GET /v1/search?q=<text>&lat=<lat>&lon=<lon>
		r.Get("/", searchHandler.Search)

		// DELETE /v1/search/cache?q=<text>
		r.Delete("/cache", searchHandler.InvalidateCache)

		// GET /v1/search/live (WebSocket)
		r.Get("/live", liveHandler.Live)
	})

	// GET /v1/distance?from_lat=&from_lon=&to_lat=&to_lon=
	r.Get("/distance", searchHandler.Distance)

	return r
}
