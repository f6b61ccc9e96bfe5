package presentation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/application"
	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/alotrabong/branch-orders-service/internal/presentation/helpers"
	"github.com/alotrabong/branch-orders-service/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type Handler struct {
	orders      *application.OrdersService
	commissions *application.CommissionsService
	revenue     *application.RevenueService
	inventory   repository.InventoryRepo
}

func NewHandler(
	orders *application.OrdersService,
	commissions *application.CommissionsService,
	revenue *application.RevenueService,
	inventory repository.InventoryRepo,
) *Handler {
	return &Handler{orders: orders, commissions: commissions, revenue: revenue, inventory: inventory}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/orders/{orderID}", func(r chi.Router) {
		r.Get("/", h.GetOrder)
		r.Get("/history", h.GetOrderHistory)
		r.Post("/status", h.TransitionOrder)
		r.Post("/courier", h.AssignCourier)
		r.Post("/cancel", h.CancelOrder)
	})

	r.Route("/branches/{branchID}/inventory", func(r chi.Router) {
		r.Put("/{itemID}", h.SetStock)
		r.Get("/low-stock", h.LowStock)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/commissions", h.CreateCommission)
		r.Put("/commissions/{commissionID}", h.UpdateCommission)
		r.Post("/commissions/{commissionID}/deactivate", h.DeactivateCommission)
		r.Get("/branches/{branchID}/commissions", h.CommissionHistory)
		r.Get("/branches/{branchID}/commissions/active", h.ActiveCommission)

		r.Get("/revenue/branches", h.RevenueByBranch)
		r.Get("/revenue/dates", h.RevenueByDate)
		r.Get("/revenue/items", h.RevenueByItem)
		r.Get("/revenue/summary", h.RevenueSummary)
		r.Get("/revenue/payments", h.PaymentBreakdown)
		r.Get("/revenue/cancellations", h.CancellationStats)
	})
}

// callerFrom trusts identity headers resolved by the upstream auth layer.
func callerFrom(r *http.Request) application.Caller {
	var c application.Caller
	if id, err := uuid.Parse(r.Header.Get("X-User-Id")); err == nil {
		c.UserID = id
	}
	if id, err := uuid.Parse(r.Header.Get("X-Branch-Id")); err == nil {
		c.BranchID = id
	}
	c.IsAdmin = r.Header.Get("X-Admin") == "true"
	return c
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// dateRange reads the mandatory from/to query params plus the optional
// branch filter shared by every report endpoint.
func dateRange(r *http.Request) (time.Time, time.Time, *uuid.UUID, string) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, nil, "invalid or missing from date (want YYYY-MM-DD)"
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, nil, "invalid or missing to date (want YYYY-MM-DD)"
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, nil, "to date precedes from date"
	}
	var branchID *uuid.UUID
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return time.Time{}, time.Time{}, nil, "invalid branch_id"
		}
		branchID = &id
	}
	return from, to, branchID, ""
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}
	return page, size
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.orders.GetOrder(r.Context(), callerFrom(r), orderID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	hist, err := h.orders.GetHistory(r.Context(), callerFrom(r), orderID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, hist)
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req transitionRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	target := domain.OrderStatus(strings.ToUpper(req.Status))
	o, err := h.orders.Advance(r.Context(), callerFrom(r), orderID, target)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o)
}

type assignRequest struct {
	CourierID string `json:"courier_id" validate:"required,uuid"`
}

func (h *Handler) AssignCourier(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req assignRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	courierID, _ := uuid.Parse(req.CourierID)
	o, err := h.orders.AssignCourier(r.Context(), callerFrom(r), orderID, courierID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Cancel(r.Context(), callerFrom(r), orderID, req.Reason)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o)
}

type stockRequest struct {
	Quantity    int `json:"quantity" validate:"min=0"`
	SafetyStock int `json:"safety_stock" validate:"min=0"`
}

func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	branchID, ok := pathUUID(r, "branchID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	itemID, ok := pathUUID(r, "itemID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	caller := callerFrom(r)
	if !caller.IsAdmin && caller.BranchID != branchID {
		helpers.WriteDomainError(w, domain.ErrForbidden)
		return
	}

	var req stockRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.inventory.SetStock(r.Context(), branchID, itemID, req.Quantity, req.SafetyStock)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	branchID, ok := pathUUID(r, "branchID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	caller := callerFrom(r)
	if !caller.IsAdmin && caller.BranchID != branchID {
		helpers.WriteDomainError(w, domain.ErrForbidden)
		return
	}

	rows, err := h.inventory.ListLowStock(r.Context(), branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rows)
}

type commissionRequest struct {
	BranchID      string          `json:"branch_id" validate:"required,uuid"`
	Type          string          `json:"commission_type" validate:"required,oneof=PERCENT FIXED"`
	Value         decimal.Decimal `json:"commission_value"`
	EffectiveFrom string          `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   string          `json:"effective_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Note          string          `json:"note"`
}

func (r commissionRequest) toInput() (application.CommissionInput, error) {
	branchID, err := uuid.Parse(r.BranchID)
	if err != nil {
		return application.CommissionInput{}, err
	}
	from, err := parseDate(r.EffectiveFrom)
	if err != nil {
		return application.CommissionInput{}, err
	}
	in := application.CommissionInput{
		BranchID:      branchID,
		Type:          domain.CommissionType(r.Type),
		Value:         r.Value,
		EffectiveFrom: from,
		Note:          r.Note,
	}
	if r.EffectiveTo != "" {
		to, err := parseDate(r.EffectiveTo)
		if err != nil {
			return application.CommissionInput{}, err
		}
		in.EffectiveTo = &to
	}
	return in, nil
}

func (h *Handler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.commissions.Create(r.Context(), in)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "commissionID"), 10, 64)
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid commission id")
		return
	}
	var req commissionRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.commissions.Update(r.Context(), id, in)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeactivateCommission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "commissionID"), 10, 64)
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid commission id")
		return
	}
	if err := h.commissions.Deactivate(r.Context(), id); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CommissionHistory(w http.ResponseWriter, r *http.Request) {
	branchID, ok := pathUUID(r, "branchID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	rows, err := h.commissions.History(r.Context(), branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) ActiveCommission(w http.ResponseWriter, r *http.Request) {
	branchID, ok := pathUUID(r, "branchID")
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	c, err := h.commissions.Active(r.Context(), branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) RevenueByBranch(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	page, size := pageParams(r)

	rows, total, err := h.revenue.ByBranch(r.Context(), from, to, branchID, page, size)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"items": rows, "total": total, "page": page, "size": size,
	})
}

func (h *Handler) RevenueByDate(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	monthly := r.URL.Query().Get("period") == "monthly"

	rows, err := h.revenue.ByDate(r.Context(), from, to, branchID, monthly)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) RevenueByItem(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	page, size := pageParams(r)

	rows, total, err := h.revenue.ByItem(r.Context(), from, to, branchID, page, size)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"items": rows, "total": total, "page": page, "size": size,
	})
}

func (h *Handler) RevenueSummary(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	sum, err := h.revenue.Summary(r.Context(), from, to, branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) PaymentBreakdown(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	b, err := h.revenue.PaymentMethods(r.Context(), from, to, branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) CancellationStats(w http.ResponseWriter, r *http.Request) {
	from, to, branchID, msg := dateRange(r)
	if msg != "" {
		helpers.HttpError(w, http.StatusBadRequest, msg)
		return
	}
	stats, err := h.revenue.Cancellations(r.Context(), from, to, branchID)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, stats)
}
