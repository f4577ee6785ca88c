package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	appempresa "github.com/jhoicas/Facturacion-api/internal/application/empresa"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// ClienteHandler maneja las peticiones HTTP de clientes receptores (protegido).
type ClienteHandler struct {
	uc *appempresa.ClienteUseCase
}

// NewClienteHandler construye el handler.
func NewClienteHandler(uc *appempresa.ClienteUseCase) *ClienteHandler {
	return &ClienteHandler{uc: uc}
}

// Create registra un receptor para la empresa del token.
// POST /api/clientes
func (h *ClienteHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateClienteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	cliente, err := h.uc.Create(c.Context(), GetEmpresaID(c), in)
	if err != nil {
		var rutErr *domain.RUTInvalidoError
		if errors.As(err, &rutErr) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_RUT", Message: rutErr.Error()})
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		if errors.Is(err, domain.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RUT_EXISTS", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(cliente)
}

// List lista los clientes de la empresa del token.
// GET /api/clientes
func (h *ClienteHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	clientes, err := h.uc.List(c.Context(), GetEmpresaID(c), page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(clientes)
}

// GetByID obtiene un cliente verificando pertenencia a la empresa del token.
// GET /api/clientes/:id
func (h *ClienteHandler) GetByID(c *fiber.Ctx) error {
	cliente, err := h.uc.GetByID(c.Context(), GetEmpresaID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cliente no encontrado"})
		}
		if errors.Is(err, domain.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(cliente)
}
