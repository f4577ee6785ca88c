package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	appdte "github.com/jhoicas/Facturacion-api/internal/application/dte"
	appempresa "github.com/jhoicas/Facturacion-api/internal/application/empresa"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	EmpresaUC    *appempresa.EmpresaUseCase
	ClienteUC    *appempresa.ClienteUseCase
	CAFUC        *appempresa.CAFUseCase
	DocumentoUC  *appdte.DocumentoUseCase
	ArtefactosUC *appdte.ArtefactoUseCase
	AuthUC       *auth.AuthUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Empresas (público: el alta de empresa es el bootstrap del registro)
	empresas := api.Group("/empresas")
	empresaHandler := NewEmpresaHandler(deps.EmpresaUC)
	empresas.Get("/", empresaHandler.List)
	empresas.Post("/", empresaHandler.Create)
	empresas.Get("/:id", empresaHandler.GetByID)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Roles: emitir/editar/enviar requiere admin o facturador; leer, cualquiera.
	emisor := RequireRole(entity.RoleAdmin, entity.RoleFacturador)
	lector := RequireRole(entity.RoleAdmin, entity.RoleFacturador, entity.RoleConsulta)

	// Clientes (receptores)
	clientes := protected.Group("/clientes")
	clienteHandler := NewClienteHandler(deps.ClienteUC)
	clientes.Post("/", emisor, clienteHandler.Create)
	clientes.Get("/", lector, clienteHandler.List)
	clientes.Get("/:id", lector, clienteHandler.GetByID)

	// CAF (rangos de folios; solo admin puede cargar)
	caf := protected.Group("/caf")
	cafHandler := NewCAFHandler(deps.CAFUC)
	caf.Post("/", RequireRole(entity.RoleAdmin), cafHandler.Create)
	caf.Get("/", lector, cafHandler.List)

	// Documentos tributarios
	documentos := protected.Group("/documentos")
	documentoHandler := NewDocumentoHandler(deps.DocumentoUC, deps.ArtefactosUC)
	documentos.Post("/", emisor, documentoHandler.Create)
	documentos.Get("/", lector, documentoHandler.List)
	documentos.Post("/totales", lector, documentoHandler.PreviewTotales)
	documentos.Get("/estadisticas", lector, documentoHandler.Estadisticas)
	documentos.Get("/:id", lector, documentoHandler.GetByID)
	documentos.Put("/:id", emisor, documentoHandler.Update)
	documentos.Delete("/:id", emisor, documentoHandler.Delete)
	documentos.Post("/:id/enviar", emisor, documentoHandler.Enviar)
	documentos.Get("/:id/estado", lector, documentoHandler.Estado)
	documentos.Post("/:id/anular", emisor, documentoHandler.Anular)
	documentos.Get("/:id/pdf", lector, documentoHandler.DownloadPDF)
	documentos.Get("/:id/xml", lector, documentoHandler.DownloadXML)
}
