package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	appdte "github.com/jhoicas/Facturacion-api/internal/application/dte"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// DocumentoHandler maneja las peticiones HTTP del ciclo de vida de los DTE
// (protegido: toda operación opera sobre la empresa del token).
type DocumentoHandler struct {
	uc         *appdte.DocumentoUseCase
	artefactos *appdte.ArtefactoUseCase
}

// NewDocumentoHandler construye el handler.
func NewDocumentoHandler(uc *appdte.DocumentoUseCase, artefactos *appdte.ArtefactoUseCase) *DocumentoHandler {
	return &DocumentoHandler{uc: uc, artefactos: artefactos}
}

// errorDocumento mapea la taxonomía de errores del dominio a HTTP:
// validación → 400, transición/conflicto/folios → 409, gateway SII → 502.
func errorDocumento(c *fiber.Ctx, err error) error {
	var rutErr *domain.RUTInvalidoError
	if errors.As(err, &rutErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_RUT", Message: rutErr.Error()})
	}
	var itemErr *domain.ItemInvalidoError
	if errors.As(err, &itemErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ITEM", Message: itemErr.Error()})
	}
	var trErr *domain.TransicionInvalidaError
	if errors.As(err, &trErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: trErr.Error()})
	}
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SII_GATEWAY", Message: gwErr.Error()})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrSinFolios):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SIN_FOLIOS", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// Create crea un borrador de documento (estado PENDIENTE).
// POST /api/documentos
func (h *DocumentoHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.uc.Crear(c.Context(), GetEmpresaID(c), GetUserID(c), in)
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// List lista los documentos de la empresa, con filtro opcional por estado.
// GET /api/documentos?estado=PENDIENTE&limit=20&offset=0
func (h *DocumentoHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	docs, err := h.uc.List(c.Context(), GetEmpresaID(c), c.Query("estado"), page)
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(docs)
}

// GetByID obtiene el documento completo: cabecera, líneas e historial.
// GET /api/documentos/:id
func (h *DocumentoHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.uc.Get(c.Context(), GetEmpresaID(c), c.Params("id"))
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(doc)
}

// Update edita un borrador (solo PENDIENTE).
// PUT /api/documentos/:id
func (h *DocumentoHandler) Update(c *fiber.Ctx) error {
	var in dto.EditDocumentoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.uc.Editar(c.Context(), GetEmpresaID(c), c.Params("id"), GetUserID(c), in)
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(doc)
}

// Enviar firma y envía el documento al SII (también reintento desde
// RECHAZADO o ERROR).
// POST /api/documentos/:id/enviar
func (h *DocumentoHandler) Enviar(c *fiber.Ctx) error {
	doc, err := h.uc.Enviar(c.Context(), GetEmpresaID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(doc)
}

// Estado consulta al SII el estado del envío (poll con el track id).
// GET /api/documentos/:id/estado
func (h *DocumentoHandler) Estado(c *fiber.Ctx) error {
	estado, err := h.uc.ConsultarEstado(c.Context(), GetEmpresaID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(estado)
}

// Anular anula administrativamente un documento ACEPTADO.
// POST /api/documentos/:id/anular
func (h *DocumentoHandler) Anular(c *fiber.Ctx) error {
	var in struct {
		Motivo string `json:"motivo"`
	}
	// El body es opcional: anular sin motivo es válido.
	_ = c.BodyParser(&in)
	doc, err := h.uc.Anular(c.Context(), GetEmpresaID(c), c.Params("id"), GetUserID(c), in.Motivo)
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(doc)
}

// Delete elimina físicamente un borrador (solo PENDIENTE).
// DELETE /api/documentos/:id
func (h *DocumentoHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Eliminar(c.Context(), GetEmpresaID(c), c.Params("id")); err != nil {
		return errorDocumento(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewTotales calcula los totales de una lista de ítems sin persistir.
// POST /api/documentos/totales
func (h *DocumentoHandler) PreviewTotales(c *fiber.Ctx) error {
	var in struct {
		Items []dto.ItemRequest `json:"items"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	totales, err := h.uc.PreviewTotales(in.Items)
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(totales)
}

// Estadisticas devuelve el conteo de documentos por estado.
// GET /api/documentos/estadisticas
func (h *DocumentoHandler) Estadisticas(c *fiber.Ctx) error {
	stats, err := h.uc.Estadisticas(c.Context(), GetEmpresaID(c))
	if err != nil {
		return errorDocumento(c, err)
	}
	return c.JSON(stats)
}

// DownloadPDF descarga la representación gráfica del documento.
// GET /api/documentos/:id/pdf
func (h *DocumentoHandler) DownloadPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.artefactos.DownloadPDF(c.Context(), GetEmpresaID(c), c.Params("id"))
	if err != nil {
		return errorDocumento(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(pdfBytes)
}

// DownloadXML descarga el XML firmado del documento (existe tras el envío).
// GET /api/documentos/:id/xml
func (h *DocumentoHandler) DownloadXML(c *fiber.Ctx) error {
	xmlBytes, filename, err := h.artefactos.DownloadXML(c.Context(), GetEmpresaID(c), c.Params("id"))
	if err != nil {
		return errorDocumento(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=ISO-8859-1")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(xmlBytes)
}
