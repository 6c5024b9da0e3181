package httpapi

import (
	"expvar"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairyhunter13/toko-sayur-pos/internal/store"
)

var (
	expvarOnce  sync.Once
	expvarStore atomic.Pointer[store.Store]
)

// publishExpvar exposes the most recently wired store under "sessions".
// expvar names are process global, so the variable is registered once.
func publishExpvar(st *store.Store) {
	expvarStore.Store(st)
	expvarOnce.Do(func() {
		expvar.Publish("sessions", expvar.Func(func() any {
			if s := expvarStore.Load(); s != nil {
				return s.Stats()
			}
			return nil
		}))
	})
}

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID, WithLogging, middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	})

	r.Get("/healthz", app.healthHandler)
	r.Get("/debug/metrics", app.metricsHandler)
	r.Handle("/debug/vars", expvar.Handler())
	r.Get("/openapi.yaml", app.openapiHandler)
	r.Get("/docs", app.docsHandler)

	r.Post("/sessions", app.createSessionHandler)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", app.getSessionHandler)
		r.Delete("/", app.deleteSessionHandler)
		r.Get("/products", app.listProductsHandler)
		r.Post("/cart/items", app.addItemHandler)
		r.Put("/cart/items/{pid}", app.updateItemHandler)
		r.Delete("/cart/items/{pid}", app.removeItemHandler)
		r.Post("/checkout", app.checkoutHandler)
		r.Get("/reports", app.reportsHandler)
		r.Get("/ws", app.wsHandler)
	})
	return r
}
