package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/scoring"
)

// ScoreRequest asks for an entity to be scored. Without inputs they are
// derived from the entity graph.
type ScoreRequest struct {
	EntityID   string            `json:"entity_id"`
	EntityType domain.EntityType `json:"entity_type"`
	Inputs     *ScoreInputs      `json:"inputs,omitempty"`
}

// ScoreInputs mirrors scoring.Inputs on the wire
type ScoreInputs struct {
	Accounting *scoring.AccountingData `json:"accounting,omitempty"`
	Business   *scoring.BusinessData   `json:"business,omitempty"`
	Location   *scoring.LocationData   `json:"location,omitempty"`
	Payments   []scoring.PaymentRecord `json:"payments,omitempty"`
}

// StatusRequest moves an alert through its lifecycle
type StatusRequest struct {
	Status domain.AlertStatus `json:"status"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	return nil
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

func (h *Handler) ProcessTransaction(c echo.Context) error {
	var tx domain.Transaction
	if err := bind(c, &tx); err != nil {
		return err
	}
	result, err := h.svc.ProcessTransaction(c.Request().Context(), &tx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) AnalyzeTransaction(c echo.Context) error {
	var tx domain.Transaction
	if err := bind(c, &tx); err != nil {
		return err
	}
	alerts, err := h.svc.AnalyzeTransaction(c.Request().Context(), &tx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) ScoreEntity(c echo.Context) error {
	var req ScoreRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	var in *scoring.Inputs
	if req.Inputs != nil {
		in = &scoring.Inputs{
			Accounting: req.Inputs.Accounting,
			Business:   req.Inputs.Business,
			Location:   req.Inputs.Location,
			Payments:   req.Inputs.Payments,
		}
	}
	profile, err := h.svc.ScoreEntity(c.Request().Context(), req.EntityID, req.EntityType, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) GetProfile(c echo.Context) error {
	entityType := domain.EntityType(c.Param("type"))
	if !entityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidInput, entityType)
	}
	profile, err := h.svc.GetProfile(c.Request().Context(), entityType, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// ListProfiles filters by exactly one of the level or province query params
func (h *Handler) ListProfiles(c echo.Context) error {
	ctx := c.Request().Context()
	level, province := c.QueryParam("level"), c.QueryParam("province")

	var (
		profiles []*domain.RiskProfile
		err      error
	)
	switch {
	case level != "" && province == "":
		profiles, err = h.svc.ProfilesByLevel(ctx, domain.RiskLevel(level))
	case province != "" && level == "":
		profiles, err = h.svc.ProfilesByProvince(ctx, province)
	default:
		return fmt.Errorf("%w: exactly one of level or province is required", domain.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *Handler) ListActiveAlerts(c echo.Context) error {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		return err
	}
	alerts, err := h.svc.ListActiveAlerts(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"alerts": alerts})
}

func alertID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid alert id", domain.ErrInvalidInput)
	}
	return id, nil
}

func (h *Handler) GetAlert(c echo.Context) error {
	id, err := alertID(c)
	if err != nil {
		return err
	}
	alert, err := h.svc.GetAlert(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *Handler) UpdateAlertStatus(c echo.Context) error {
	id, err := alertID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	alert, err := h.svc.UpdateAlertStatus(c.Request().Context(), id, req.Status, actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *Handler) AnalyzeSystemicRisks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.AnalyzeSystemicRisks(c.Request().Context()))
}

func (h *Handler) DetectFraudPatterns(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.DetectFraudPatterns(c.Request().Context()))
}

func (h *Handler) SimulateRiskPropagation(c echo.Context) error {
	var scenario graph.StressScenario
	if err := bind(c, &scenario); err != nil {
		return err
	}
	result, err := h.svc.SimulateRiskPropagation(c.Request().Context(), scenario)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) FindContagionPaths(c echo.Context) error {
	maxHops, err := queryInt(c, "max_hops", 0)
	if err != nil {
		return err
	}
	paths := h.svc.FindContagionPaths(c.Request().Context(), c.Param("id"), maxHops)
	return c.JSON(http.StatusOK, map[string]any{"paths": paths})
}

func (h *Handler) CalculateCentrality(c echo.Context) error {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return err
	}
	scores := h.svc.CalculateCentrality(c.Request().Context(), limit)
	return c.JSON(http.StatusOK, map[string]any{"centrality": scores})
}

func (h *Handler) DetectCommunities(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"communities": h.svc.DetectCommunities(c.Request().Context())})
}

func (h *Handler) AnalyzeResilience(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.AnalyzeResilience(c.Request().Context()))
}

func (h *Handler) RegisterSME(c echo.Context) error {
	var sme graph.SMERecord
	if err := bind(c, &sme); err != nil {
		return err
	}
	if sme.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if err := h.svc.RegisterSME(c.Request().Context(), sme); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordCredit(c echo.Context) error {
	var credit graph.CreditRecord
	if err := bind(c, &credit); err != nil {
		return err
	}
	if credit.ID == "" || credit.Amount <= 0 {
		return fmt.Errorf("%w: id and a positive amount are required", domain.ErrInvalidInput)
	}
	if err := h.svc.RecordCredit(c.Request().Context(), credit); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) AllPortfolioConcentrations(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"portfolios": h.svc.AllPortfolioConcentrations(c.Request().Context()),
	})
}

func (h *Handler) PortfolioConcentration(c echo.Context) error {
	result, err := h.svc.PortfolioConcentration(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ProductMix(c echo.Context) error {
	result, err := h.svc.ProductMix(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) BorrowerDependency(c echo.Context) error {
	result, err := h.svc.BorrowerDependency(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
