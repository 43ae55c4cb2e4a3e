package patient

import (
	"errors"
	"net/http"
	"strconv"

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
	g := api.Group("/patients", auth.RequireRole("doctor", "nurse"))
	g.GET("/by-name/:name", h.ByName)
	g.GET("/by-condition/:condition", h.ByCondition)
	g.GET("/by-gender/:gender", h.ByGender)
	g.GET("/by-age/:age", h.ByAge)
	g.GET("/by-attribute/:key/:value", h.ByAttribute)
}

// httpError maps pipeline errors onto transport status codes. Validation
// failures never reached a store; query failures are upstream faults.
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

func (h *Handler) ByName(c echo.Context) error {
	patients, err := h.svc.ByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) ByCondition(c echo.Context) error {
	results, err := h.svc.ByCondition(c.Request().Context(), c.Param("condition"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) ByGender(c echo.Context) error {
	patients, err := h.svc.ByGender(c.Request().Context(), c.Param("gender"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) ByAge(c echo.Context) error {
	age, err := strconv.Atoi(c.Param("age"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "age must be an integer")
	}
	patients, err := h.svc.ByAge(c.Request().Context(), age)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) ByAttribute(c echo.Context) error {
	patients, err := h.svc.ByAttribute(c.Request().Context(), c.Param("key"), c.Param("value"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}
