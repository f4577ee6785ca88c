package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	appdte "github.com/jhoicas/Facturacion-api/internal/application/dte"
	appempresa "github.com/jhoicas/Facturacion-api/internal/application/empresa"
	infrapdf "github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	infrasii "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii"
	siisigner "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii/signer"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sii_ambiente", cfg.SII.Ambiente).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	empresaRepo := postgres.NewEmpresaRepository(pool)
	clienteRepo := postgres.NewClienteRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	docRepo := postgres.NewDocumentoRepository(pool)
	cafRepo := postgres.NewCAFRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	siiCfg := appdte.SIIConfig{
		Ambiente:     cfg.SII.Ambiente,
		CertPath:     cfg.SII.CertPath,
		CertKeyPath:  cfg.SII.CertKeyPath,
		CertPassword: cfg.SII.CertPassword,
	}

	// Cliente HTTP del SII — solo se usa en cert/prod. En "dev" el caso de
	// uso simula la recepción sin salir a la red.
	var gateway infrasii.Gateway
	if cfg.SII.Ambiente != pkgsii.AmbienteDev {
		gateway = infrasii.NewHTTPClient()
	}

	// Firma digital — con certificado configurado se firma el DTE; sin
	// certificado (solo dev) el XML sale sin firma.
	var signer pkgsii.Signer
	if cfg.SII.CertPath != "" {
		signer = siisigner.NewDigitalSignatureService()
	}

	xmlBuilder := infrasii.NewXMLBuilderService()
	documentoUC := appdte.NewDocumentoUseCase(
		txRunner, docRepo, cafRepo, empresaRepo, clienteRepo,
		xmlBuilder, signer, gateway, siiCfg, log,
	)

	// PDF: representación gráfica del DTE con timbre
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	artefactosUC := appdte.NewArtefactoUseCase(docRepo, pdfGenerator)

	empresaUC := appempresa.NewEmpresaUseCase(empresaRepo)
	clienteUC := appempresa.NewClienteUseCase(clienteRepo)
	cafUC := appempresa.NewCAFUseCase(cafRepo)
	authUC := auth.NewAuthUseCase(userRepo, empresaRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SII API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		EmpresaUC:    empresaUC,
		ClienteUC:    clienteUC,
		CAFUC:        cafUC,
		DocumentoUC:  documentoUC,
		ArtefactosUC: artefactosUC,
		AuthUC:       authUC,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
