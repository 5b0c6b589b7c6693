package orders_api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/broker/messages"
	"github.com/unibazaar/shipsync/internal/models"
	"github.com/unibazaar/shipsync/internal/services/syncer"
	"github.com/unibazaar/shipsync/internal/storage/pgorders"
)

// OrdersAPI is the JSON surface the marketplace UI talks to: order view,
// manual refresh, webhook simulation, ledger timeline.
type OrdersAPI struct {
	svc *syncer.Service
}

func New(svc *syncer.Service) *OrdersAPI {
	return &OrdersAPI{svc: svc}
}

func (a *OrdersAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", a.createOrder)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", a.getOrder)
			r.Post("/cancel", a.cancelOrder)
			r.Post("/shipment", a.assignShipment)
			r.Route("/tracking", func(r chi.Router) {
				r.Post("/refresh", a.refreshTracking)
				r.Post("/webhook", a.simulateWebhook)
				r.Get("/history", a.trackingHistory)
			})
		})
	})

	return r
}

type createOrderReq struct {
	ID            string `json:"id,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

func (a *OrdersAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode body"))
		return
	}
	o, err := a.svc.CreateOrder(r.Context(), models.OrderCreateInput{
		ID:            req.ID,
		PaymentStatus: models.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(o))
}

func (a *OrdersAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.CurrentView(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type assignShipmentReq struct {
	TrackingNumber string `json:"trackingNumber"`
	CourierCode    string `json:"courierCode"`
	CourierName    string `json:"courierName,omitempty"`
}

func (a *OrdersAPI) assignShipment(w http.ResponseWriter, r *http.Request) {
	var req assignShipmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode body"))
		return
	}
	res, err := a.svc.AssignShipment(r.Context(), chi.URLParam(r, "orderID"), req.TrackingNumber, req.CourierCode, req.CourierName)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *OrdersAPI) refreshTracking(w http.ResponseWriter, r *http.Request) {
	a.runSync(w, r)
}

// Webhook delivery from the provider is unavailable outside production, so
// the UI posts here instead. Same contract and side effects as refresh.
func (a *OrdersAPI) simulateWebhook(w http.ResponseWriter, r *http.Request) {
	a.runSync(w, r)
}

func (a *OrdersAPI) runSync(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Sync(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type historyEntryView struct {
	Time     time.Time `json:"time"`
	Status   string    `json:"status,omitempty"`
	Details  string    `json:"details"`
	Location string    `json:"location,omitempty"`
}

func (a *OrdersAPI) trackingHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := a.svc.ReadHistory(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]historyEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryView{
			Time:     e.CheckpointTime,
			Status:   e.Status,
			Details:  e.Details,
			Location: e.Location,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (a *OrdersAPI) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelled, err := a.svc.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

type orderView struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"paymentStatus"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	CourierCode    string `json:"courierCode,omitempty"`
	CourierName    string `json:"courierName,omitempty"`
	ShortLink      string `json:"shortLink,omitempty"`
	DetailedStatus string `json:"detailedStatus,omitempty"`
}

func toOrderView(o *models.Order) orderView {
	v := orderView{
		ID:             o.ID,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		TrackingNumber: o.TrackingNumber,
		CourierCode:    o.CourierCode,
		CourierName:    o.CourierName,
	}
	if o.ShortLink != nil {
		v.ShortLink = *o.ShortLink
	}
	if o.DetailedTrackingStatus != nil {
		v.DetailedStatus = *o.DetailedTrackingStatus
	}
	return v
}

// DecodeSyncRequest parses one message from the sync-request topic.
func DecodeSyncRequest(value []byte) (messages.SyncRequested, error) {
	var m messages.SyncRequested
	if err := json.Unmarshal(value, &m); err != nil {
		return messages.SyncRequested{}, errors.Wrap(err, "decode sync request")
	}
	return m, nil
}

func statusFor(err error) int {
	if errors.Is(err, pgorders.ErrOrderNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
