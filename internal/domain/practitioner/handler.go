package practitioner

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/practitioners", auth.RequireRole("doctor", "nurse"))
	g.GET("/:name/roster", h.Roster)
	g.GET("/:name/encounters/:date", h.EncountersOn)
	g.GET("/:name/encounters", h.EncountersBetween)
}

func httpError(err error) error {
	if correlate.IsValidation(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var qe *correlate.QueryError
	if errors.As(err, &qe) {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream query failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) Roster(c echo.Context) error {
	roster, err := h.svc.Roster(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roster)
}

func (h *Handler) EncountersOn(c echo.Context) error {
	results, err := h.svc.EncountersOn(c.Request().Context(), c.Param("name"), c.Param("date"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) EncountersBetween(c echo.Context) error {
	results, err := h.svc.EncountersBetween(
		c.Request().Context(), c.Param("name"),
		c.QueryParam("from"), c.QueryParam("to"),
	)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}
