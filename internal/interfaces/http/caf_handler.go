package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	appempresa "github.com/jhoicas/Facturacion-api/internal/application/empresa"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// CAFHandler maneja la carga y consulta de rangos de folios (protegido).
type CAFHandler struct {
	uc *appempresa.CAFUseCase
}

// NewCAFHandler construye el handler.
func NewCAFHandler(uc *appempresa.CAFUseCase) *CAFHandler {
	return &CAFHandler{uc: uc}
}

// Create carga un CAF para la empresa del token.
// POST /api/caf
func (h *CAFHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCAFRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	caf, err := h.uc.Create(c.Context(), GetEmpresaID(c), in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		if errors.Is(err, domain.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RANGO_SOLAPADO", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(caf)
}

// List lista los CAF de la empresa del token con folios disponibles.
// GET /api/caf
func (h *CAFHandler) List(c *fiber.Ctx) error {
	cafs, err := h.uc.List(c.Context(), GetEmpresaID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(cafs)
}
