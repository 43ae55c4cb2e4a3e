package encounter

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/encounters", h.List, auth.RequireRole("doctor", "nurse"))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		encounters []*Encounter
		total      int
		err        error
	)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		encounters, total, err = h.svc.ListByPatient(ctx, patientID, pg.Limit, pg.Offset)
	} else {
		encounters, total, err = h.svc.List(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		if correlate.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		var qe *correlate.QueryError
		if errors.As(err, &qe) {
			return echo.NewHTTPError(http.StatusBadGateway, "upstream query failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if encounters == nil {
		encounters = []*Encounter{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encounters, total, pg.Limit, pg.Offset))
}
