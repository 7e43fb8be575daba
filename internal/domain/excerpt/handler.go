package excerpt

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/ehr/notification-builder/internal/domain/bundlectx"
	"github.com/ehr/notification-builder/internal/platform/auth"
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/pagination"
)

// fhirJSON is the media type of FHIR responses.
const fhirJSON = "application/fhir+json"

// strategyHeader names the strategy that produced a response bundle.
const strategyHeader = "X-Transformation-Strategy"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	ops := fhirGroup.Group("", auth.RequireRole(auth.RoleProcessor))
	ops.POST("/Bundle/$excerpt", h.ExcerptFHIR)
	ops.POST("/Bundle/$copy", h.CopyFHIR)

	read := api.Group("", auth.RequireRole(auth.RoleArchiveReader))
	read.GET("/excerpts", h.ListExcerpts)
	read.GET("/excerpts/:identifier", h.GetExcerpt)
	read.GET("/excerpts/:identifier/bundle", h.GetExcerptBundle)
}

func (h *Handler) ExcerptFHIR(c echo.Context) error {
	return h.transform(c, h.svc.Excerpt)
}

func (h *Handler) CopyFHIR(c echo.Context) error {
	return h.transform(c, h.svc.Copy)
}

func (h *Handler) transform(c echo.Context, op func(ctx context.Context, b *fhir.Bundle) (*Result, error)) error {
	b, err := fhir.Decode(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeStructure, err.Error()))
	}
	res, err := op(c.Request().Context(), b)
	if err != nil {
		return c.JSON(transformStatus(err), transformOutcome(err))
	}
	c.Response().Header().Set(strategyHeader, res.Strategy)
	return fhirBundle(c, http.StatusOK, res.Bundle)
}

// transformStatus maps a transformation error to an HTTP status. Input the
// engine cannot interpret is unprocessable; anything else, including a
// *copier.CopyContractViolation, is a server defect.
func transformStatus(err error) int {
	var cre *bundlectx.ContextResolutionError
	if errors.As(err, &cre) || errors.Is(err, ErrNoStrategy) || errors.Is(err, ErrUnsupportedTransition) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func transformOutcome(err error) *fhir.OperationOutcome {
	var cre *bundlectx.ContextResolutionError
	switch {
	case errors.As(err, &cre):
		return fhir.RequiredOutcome(cre.Role, err.Error())
	case errors.Is(err, ErrNoStrategy), errors.Is(err, ErrUnsupportedTransition):
		return fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotSupported, err.Error())
	}
	return fhir.ExceptionOutcome(err.Error())
}

func (h *Handler) ListExcerpts(c echo.Context) error {
	page, err := pagination.Parse(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	source := c.QueryParam("source")
	items, total, err := h.svc.List(c.Request().Context(), source, page.Count, page.Offset)
	if err != nil {
		return archiveError(err)
	}
	filters := url.Values{}
	if source != "" {
		filters.Set("source", source)
	}
	return c.JSON(http.StatusOK, page.Listing(items, total, c.Request().URL.Path, filters))
}

func (h *Handler) GetExcerpt(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return archiveError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// GetExcerptBundle returns the archived bundle itself as FHIR JSON.
func (h *Handler) GetExcerptBundle(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return archiveError(err)
	}
	return c.Blob(http.StatusOK, fhirJSON, a.Body)
}

func archiveError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "archived bundle not found")
	case errors.Is(err, ErrArchiveDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func fhirBundle(c echo.Context, status int, b *fhir.Bundle) error {
	c.Response().Header().Set(echo.HeaderContentType, fhirJSON)
	c.Response().WriteHeader(status)
	return fhir.Encode(c.Response(), b, false)
}
