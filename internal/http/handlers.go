package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/toko-sayur-pos/internal/catalog"
	"github.com/fairyhunter13/toko-sayur-pos/internal/config"
	httpopenapi "github.com/fairyhunter13/toko-sayur-pos/internal/http/openapi"
	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
	"github.com/fairyhunter13/toko-sayur-pos/internal/obs"
	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
	"github.com/fairyhunter13/toko-sayur-pos/internal/queue"
	"github.com/fairyhunter13/toko-sayur-pos/internal/report"
	"github.com/fairyhunter13/toko-sayur-pos/internal/store"
)

type App struct {
	Cfg      config.Config
	Store    *store.Store
	closing  atomic.Bool
	started  time.Time
	upgrader *websocket.Upgrader
	streams  sync.WaitGroup
}

type sessionCreated struct {
	SessionID string         `json:"session_id"`
	Snapshot  model.Snapshot `json:"snapshot"`
}

type actionResponse struct {
	Outcome  pos.Outcome    `json:"outcome"`
	Receipt  *model.Receipt `json:"receipt,omitempty"`
	Snapshot model.Snapshot `json:"snapshot"`
}

type productView struct {
	model.Product
	PerformancePct int `json:"performance_pct"`
}

type metricsView struct {
	store.Stats
	UptimeSec float64 `json:"uptime_sec"`
}

type addItemRequest struct {
	ProductID *int `json:"product_id"`
	Quantity  *int `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutRequest struct {
	Payment string `json:"payment"`
}

func NewApp(cfg config.Config, st *store.Store) *App {
	if cfg.WSWriteTimeout <= 0 {
		cfg.WSWriteTimeout = 5 * time.Second
	}
	publishExpvar(st)
	return &App{Cfg: cfg, Store: st, started: time.Now(), upgrader: newUpgrader(cfg.WSAllowedOrigins)}
}

// StartShutdown makes mutating endpoints answer 503.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}

// decodeJSON enforces a JSON content type and strict decoding. It writes
// the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		if allowEmpty && r.ContentLength == 0 {
			return true
		}
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*queue.Loop, bool) {
	l, err := a.Store.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return l, true
}

func (a *App) refuseWhileClosing(w http.ResponseWriter) bool {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return true
	}
	return false
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "pid"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product id must be an integer")
		return 0, false
	}
	return id, true
}

// respond renders the result of a submitted action.
func (a *App) respond(w http.ResponseWriter, r *http.Request, action string, rep queue.Reply, err error) {
	if err != nil {
		writeSessionError(w, err)
		return
	}
	a.logAction(r, action, rep)
	if rerr := rep.Result.Err(); rerr != nil {
		WriteJSONError(w, rejectionStatus(rep.Result.Outcome), string(rep.Result.Outcome), rerr.Error())
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Outcome:  rep.Result.Outcome,
		Receipt:  rep.Receipt,
		Snapshot: rep.Snapshot,
	})
}

func (a *App) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if a.refuseWhileClosing(w) {
		return
	}
	l, err := a.Store.Create()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+l.ID())
	writeJSON(w, http.StatusCreated, sessionCreated{SessionID: l.ID(), Snapshot: l.Snapshot()})
}

func (a *App) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, l.Snapshot())
}

func (a *App) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Delete(chi.URLParam(r, "sid")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	found := catalog.Search(l.Snapshot().Products, r.URL.Query().Get("q"))
	out := make([]productView, 0, len(found))
	for _, p := range found {
		out = append(out, productView{Product: p, PerformancePct: report.Performance(p)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (a *App) addItemHandler(w http.ResponseWriter, r *http.Request) {
	if a.refuseWhileClosing(w) {
		return
	}
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.ProductID == nil || req.Quantity == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product_id and quantity are required")
		return
	}
	rep, err := l.Submit(r.Context(), pos.AddToCart(*req.ProductID, *req.Quantity))
	a.respond(w, r, pos.KindAdd.String(), rep, err)
}

func (a *App) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	if a.refuseWhileClosing(w) {
		return
	}
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Quantity == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "quantity is required")
		return
	}
	rep, err := l.Submit(r.Context(), pos.UpdateCartQuantity(id, *req.Quantity))
	a.respond(w, r, pos.KindUpdate.String(), rep, err)
}

func (a *App) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	if a.refuseWhileClosing(w) {
		return
	}
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	rep, err := l.Submit(r.Context(), pos.RemoveFromCart(id))
	a.respond(w, r, pos.KindRemove.String(), rep, err)
}

func (a *App) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	if a.refuseWhileClosing(w) {
		return
	}
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Payment != "" && !catalog.ValidPayment(req.Payment) {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "payment must be one of Cash, Transfer, QRIS")
		return
	}
	rep, err := l.Checkout(r.Context(), req.Payment)
	a.respond(w, r, pos.KindCheckout.String(), rep, err)
}

func (a *App) reportsHandler(w http.ResponseWriter, r *http.Request) {
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Build(l.Snapshot(), catalog.WeeklySales()))
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsView{
		Stats:     a.Store.Stats(),
		UptimeSec: time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Toko Sayur POS API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

func (a *App) logAction(r *http.Request, action string, rep queue.Reply) {
	obs.Logger.Debug("cart_request_done",
		"request_id", RequestIDFromContext(r.Context()),
		"action", action,
		"outcome", string(rep.Result.Outcome),
		"version", rep.Snapshot.Version,
	)
}
