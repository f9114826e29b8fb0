// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines the public catalogue API. Institutions, programs and the
// country list can be browsed without a token; only active records are shown.

package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
)

// CatalogueHandler serves the public catalogue.
type CatalogueHandler struct {
    Institutions *repository.InstitutionRepo
    Programs     *repository.ProgramRepo
}

func NewCatalogueHandler(i *repository.InstitutionRepo, p *repository.ProgramRepo) *CatalogueHandler {
    return &CatalogueHandler{Institutions: i, Programs: p}
}

// ListInstitutions searches active institutions.
// Query: q, country (ISO code), type, page, per_page.
func (h *CatalogueHandler) ListInstitutions(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Institutions.Search(ctx, repository.InstitutionFilter{
        Query:       c.QueryParam("q"),
        CountryCode: strings.TrimSpace(c.QueryParam("country")),
        Type:        strings.TrimSpace(c.QueryParam("type")),
        ActiveOnly:  true,
        Pagination:  pagination(c),
    })
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return listJSON(c, items, page)
}

// GetInstitution returns one active institution with its active programs.
func (h *CatalogueHandler) GetInstitution(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "institution id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    inst, err := h.Institutions.GetWithPrograms(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "institution not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !inst.IsActive {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "institution not found"})
    }
    return c.JSON(http.StatusOK, inst)
}

// ListPrograms searches active programs.
// Query: institution_id, field, degree_type, min_fee, max_fee, page, per_page.
// Fees are decimal amounts in the program currency.
func (h *CatalogueHandler) ListPrograms(c echo.Context) error {
    minFee, err := queryCents(c, "min_fee")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    maxFee, err := queryCents(c, "max_fee")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Programs.Search(ctx, repository.ProgramFilter{
        InstitutionID: queryUint(c, "institution_id"),
        Field:         c.QueryParam("field"),
        DegreeType:    strings.TrimSpace(c.QueryParam("degree_type")),
        MinFeeCents:   minFee,
        MaxFeeCents:   maxFee,
        ActiveOnly:    true,
        Pagination:    pagination(c),
    })
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return listJSON(c, items, page)
}

// GetProgram returns one active program with its institution.
func (h *CatalogueHandler) GetProgram(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "program id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    prog, err := h.Programs.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "program not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !prog.IsActive {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "program not found"})
    }
    return c.JSON(http.StatusOK, prog)
}

// Countries lists the distinct countries of active institutions.
func (h *CatalogueHandler) Countries(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    out, err := h.Institutions.Countries(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
