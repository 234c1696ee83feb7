package quote

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/catalog"
	"github.com/mira-stack/backend-quotes/internal/common"
	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// Event type discriminators accepted on the wire.
const (
	eventSetManualBase     = "SET_MANUAL_BASE"
	eventSelectPackage     = "SELECT_PACKAGE"
	eventAddAddOn          = "ADD_ADDON"
	eventRemoveAddOn       = "REMOVE_ADDON"
	eventTogglePerUnit     = "TOGGLE_PER_UNIT"
	eventSetGroupSize      = "SET_GROUP_SIZE"
	eventSetCurrency       = "SET_CURRENCY"
	eventEditTotal         = "EDIT_TOTAL"
	eventRecalculate       = "RECALCULATE"
	eventResetToCalculated = "RESET_TO_CALCULATED"
)

// Handler exposes the quote engine over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler builds a handler with a fresh validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

// Routes mounts the quote endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Route("/{quoteID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/events", h.applyEvent)
		r.Get("/history", h.history)
		r.Post("/export", h.export)
	})
	return r
}

type createRequest struct {
	GroupSize int     `json:"groupSize" validate:"required,min=1,max=1000"`
	Currency  string  `json:"currency" validate:"required,oneof=EUR USD GBP"`
	BasePrice *string `json:"basePrice"`
}

type eventRequest struct {
	Type           string  `json:"type" validate:"required"`
	Amount         *string `json:"amount"`
	PackageID      string  `json:"packageId"`
	PackageVersion int     `json:"packageVersion"`
	TierLabel      string  `json:"tierLabel"`
	Period         string  `json:"period"`
	Nights         int     `json:"nights"`
	AddOnID        string  `json:"addOnId"`
	PerUnit        *bool   `json:"perUnit"`
	GroupSize      int     `json:"groupSize"`
	Currency       string  `json:"currency"`
}

type exportRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	cur, err := pricing.ParseCurrency(req.Currency)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	in := CreateInput{GroupSize: req.GroupSize, Currency: cur}
	if req.BasePrice != nil {
		amount, err := pricing.ParseAmount(*req.BasePrice)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		in.BasePrice = &amount
	}
	d, err := h.Svc.Create(r.Context(), actorOrAnonymous(r), in)
	if err != nil {
		renderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, draftResponse(d, nil))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote id", nil)
		return
	}
	d, warnings, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, draftResponse(d, warnings))
}

func (h *Handler) applyEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote id", nil)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	ev, err := buildEvent(req)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	d, warnings, err := h.Svc.Apply(r.Context(), id, actorOrAnonymous(r), ev)
	if err != nil {
		renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, draftResponse(d, warnings))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote id", nil)
		return
	}
	entries, err := h.Svc.History(r.Context(), id)
	if err != nil {
		renderError(w, err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote id", nil)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	summary, err := h.Svc.Export(r.Context(), id, req.Email)
	if err != nil {
		renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func buildEvent(req eventRequest) (Event, error) {
	switch req.Type {
	case eventSetManualBase:
		amount, err := requiredAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		return SetManualBase{Amount: amount}, nil
	case eventSelectPackage:
		if req.PackageID == "" {
			return nil, errors.New("packageId is required")
		}
		return SelectPackage{
			PackageID:      req.PackageID,
			PackageVersion: req.PackageVersion,
			TierLabel:      req.TierLabel,
			Period:         req.Period,
			Nights:         req.Nights,
		}, nil
	case eventAddAddOn:
		id, err := requiredAddOnID(req.AddOnID)
		if err != nil {
			return nil, err
		}
		return AddAddOn{AddOnID: id, PerUnit: req.PerUnit}, nil
	case eventRemoveAddOn:
		id, err := requiredAddOnID(req.AddOnID)
		if err != nil {
			return nil, err
		}
		return RemoveAddOn{AddOnID: id}, nil
	case eventTogglePerUnit:
		id, err := requiredAddOnID(req.AddOnID)
		if err != nil {
			return nil, err
		}
		return TogglePerUnit{AddOnID: id}, nil
	case eventSetGroupSize:
		return SetGroupSize{Size: req.GroupSize}, nil
	case eventSetCurrency:
		cur, err := pricing.ParseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		return SetCurrency{Currency: cur}, nil
	case eventEditTotal:
		amount, err := requiredAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		return EditTotal{Amount: amount}, nil
	case eventRecalculate:
		return Recalculate{}, nil
	case eventResetToCalculated:
		return ResetToCalculated{}, nil
	default:
		return nil, errors.New("unknown event type " + req.Type)
	}
}

func requiredAmount(raw *string) (pricing.Money, error) {
	if raw == nil {
		return 0, errors.New("amount is required")
	}
	return pricing.ParseAmount(*raw)
}

func requiredAddOnID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("addOnId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("addOnId must be a UUID")
	}
	return id, nil
}

func parseQuoteID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "quoteID"))
}

func actorOrAnonymous(r *http.Request) string {
	if actor, ok := common.Actor(r.Context()); ok {
		return actor
	}
	return "anonymous"
}

func renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "quote not found", nil)
	case errors.Is(err, ErrAddOnNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "ADDON_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrValidation):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, catalog.ErrUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "catalog unavailable, try again", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
