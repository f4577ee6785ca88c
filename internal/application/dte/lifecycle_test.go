package dte_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdte "github.com/jhoicas/Facturacion-api/internal/application/dte"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasii "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// ── fakes en memoria ──────────────────────────────────────────────────────────

type fakeDocRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.DocumentoTributario
	detalles map[string][]entity.DetalleDocumento
	eventos  map[string][]entity.EventoDocumento
	seq      int
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		docs:     make(map[string]*entity.DocumentoTributario),
		detalles: make(map[string][]entity.DetalleDocumento),
		eventos:  make(map[string][]entity.EventoDocumento),
	}
}

func (r *fakeDocRepo) Create(_ context.Context, doc *entity.DocumentoTributario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.docs {
		if existente.EmpresaID == doc.EmpresaID && existente.TipoDTE == doc.TipoDTE && existente.Folio == doc.Folio {
			return fmt.Errorf("folio %d ya emitido: %w", doc.Folio, domain.ErrConflict)
		}
	}
	copia := *doc
	r.docs[doc.ID] = &copia
	return nil
}

func (r *fakeDocRepo) CreateDetalle(_ context.Context, d *entity.DetalleDocumento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detalles[d.DocumentoID] = append(r.detalles[d.DocumentoID], *d)
	return nil
}

func (r *fakeDocRepo) Update(_ context.Context, doc *entity.DocumentoTributario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	copia := *doc
	r.docs[doc.ID] = &copia
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*entity.DocumentoTributario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	copia := *doc
	return &copia, nil
}

func (r *fakeDocRepo) GetDetalles(_ context.Context, documentoID string) ([]entity.DetalleDocumento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.DetalleDocumento, len(r.detalles[documentoID]))
	copy(out, r.detalles[documentoID])
	sort.Slice(out, func(i, j int) bool { return out[i].NumeroLinea < out[j].NumeroLinea })
	return out, nil
}

func (r *fakeDocRepo) ReplaceDetalles(_ context.Context, documentoID string, detalles []entity.DetalleDocumento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	nuevos := make([]entity.DetalleDocumento, len(detalles))
	copy(nuevos, detalles)
	for i := range nuevos {
		nuevos[i].DocumentoID = documentoID
	}
	r.detalles[documentoID] = nuevos
	return nil
}

func (r *fakeDocRepo) AppendEvento(_ context.Context, evento *entity.EventoDocumento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := *evento
	e.ID = fmt.Sprintf("ev-%d", r.seq)
	r.eventos[evento.DocumentoID] = append(r.eventos[evento.DocumentoID], e)
	return nil
}

func (r *fakeDocRepo) GetEventos(_ context.Context, documentoID string) ([]entity.EventoDocumento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.EventoDocumento, len(r.eventos[documentoID]))
	copy(out, r.eventos[documentoID])
	return out, nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.docs, id)
	delete(r.detalles, id)
	delete(r.eventos, id)
	return nil
}

func (r *fakeDocRepo) List(_ context.Context, empresaID, estado string, limit, offset int) ([]*entity.DocumentoTributario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DocumentoTributario
	for _, doc := range r.docs {
		if doc.EmpresaID != empresaID {
			continue
		}
		if estado != "" && doc.Estado != estado {
			continue
		}
		copia := *doc
		out = append(out, &copia)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folio < out[j].Folio })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDocRepo) CountPorEstado(_ context.Context, empresaID string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, doc := range r.docs {
		if doc.EmpresaID == empresaID {
			counts[doc.Estado]++
		}
	}
	return counts, nil
}

type fakeCAFRepo struct {
	mu   sync.Mutex
	cafs map[string]*entity.CAF
}

func newFakeCAFRepo() *fakeCAFRepo {
	return &fakeCAFRepo{cafs: make(map[string]*entity.CAF)}
}

func (r *fakeCAFRepo) Create(_ context.Context, caf *entity.CAF) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copia := *caf
	r.cafs[caf.ID] = &copia
	return nil
}

func (r *fakeCAFRepo) GetByID(_ context.Context, id string) (*entity.CAF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	caf, ok := r.cafs[id]
	if !ok {
		return nil, nil
	}
	copia := *caf
	return &copia, nil
}

func (r *fakeCAFRepo) GetActivoByEmpresaYTipo(_ context.Context, empresaID, tipoDTE string) (*entity.CAF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, caf := range r.cafs {
		if caf.EmpresaID == empresaID && caf.TipoDTE == tipoDTE && caf.Activo {
			copia := *caf
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *fakeCAFRepo) ListByEmpresa(_ context.Context, empresaID string) ([]*entity.CAF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.CAF
	for _, caf := range r.cafs {
		if caf.EmpresaID == empresaID {
			copia := *caf
			out = append(out, &copia)
		}
	}
	return out, nil
}

func (r *fakeCAFRepo) MarcarFolioUsado(_ context.Context, cafID string, folio int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	caf, ok := r.cafs[cafID]
	if !ok || caf.UltimoFolioUsado >= folio {
		return fmt.Errorf("folio %d ya consumido: %w", folio, domain.ErrConflict)
	}
	caf.UltimoFolioUsado = folio
	return nil
}

func (r *fakeCAFRepo) Update(_ context.Context, caf *entity.CAF) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copia := *caf
	r.cafs[caf.ID] = &copia
	return nil
}

type fakeEmpresaRepo struct {
	empresas map[string]*entity.Empresa
}

func (r *fakeEmpresaRepo) Create(_ context.Context, e *entity.Empresa) error { return nil }
func (r *fakeEmpresaRepo) GetByID(_ context.Context, id string) (*entity.Empresa, error) {
	return r.empresas[id], nil
}
func (r *fakeEmpresaRepo) GetByRUT(_ context.Context, rut string) (*entity.Empresa, error) {
	return nil, nil
}
func (r *fakeEmpresaRepo) List(_ context.Context, limit, offset int) ([]*entity.Empresa, error) {
	return nil, nil
}
func (r *fakeEmpresaRepo) Update(_ context.Context, e *entity.Empresa) error { return nil }

type fakeClienteRepo struct{}

func (r *fakeClienteRepo) Create(_ context.Context, c *entity.Cliente) error { return nil }
func (r *fakeClienteRepo) GetByID(_ context.Context, id string) (*entity.Cliente, error) {
	return nil, nil
}
func (r *fakeClienteRepo) GetByEmpresaYRUT(_ context.Context, empresaID, rut string) (*entity.Cliente, error) {
	return nil, nil
}
func (r *fakeClienteRepo) ListByEmpresa(_ context.Context, empresaID string, limit, offset int) ([]*entity.Cliente, error) {
	return nil, nil
}
func (r *fakeClienteRepo) Update(_ context.Context, c *entity.Cliente) error { return nil }

// fakeTxRunner ejecuta los callbacks directamente sobre los fakes; la
// atomicidad real la prueban los tests de integración del repositorio.
type fakeTxRunner struct {
	docs *fakeDocRepo
	cafs *fakeCAFRepo
}

func (r *fakeTxRunner) RunEmision(ctx context.Context, fn func(repository.DocumentoRepository, repository.CAFRepository) error) error {
	return fn(r.docs, r.cafs)
}

func (r *fakeTxRunner) RunDocumento(ctx context.Context, fn func(repository.DocumentoRepository) error) error {
	return fn(r.docs)
}

type fakeGateway struct {
	enviarFn    func(ctx context.Context, rutEmisor string, xmlFirmado []byte, env string) (*infrasii.EnvioResult, error)
	consultarFn func(ctx context.Context, rutEmisor, trackID, env string) (*infrasii.EstadoResult, error)
	envios      int
}

func (g *fakeGateway) Enviar(ctx context.Context, rutEmisor string, xmlFirmado []byte, env string) (*infrasii.EnvioResult, error) {
	g.envios++
	return g.enviarFn(ctx, rutEmisor, xmlFirmado, env)
}

func (g *fakeGateway) ConsultarEstado(ctx context.Context, rutEmisor, trackID, env string) (*infrasii.EstadoResult, error) {
	return g.consultarFn(ctx, rutEmisor, trackID, env)
}

// ── armado del caso de uso bajo prueba ────────────────────────────────────────

const (
	empresaID  = "emp-1"
	rutEmisor  = "76123456-0"
	rutCliente = "12345678-5"
)

type fixture struct {
	uc      *appdte.DocumentoUseCase
	docs    *fakeDocRepo
	cafs    *fakeCAFRepo
	gateway *fakeGateway
}

func newFixture(t *testing.T, gateway *fakeGateway, ambiente string) *fixture {
	t.Helper()

	docs := newFakeDocRepo()
	cafs := newFakeCAFRepo()
	empresas := &fakeEmpresaRepo{empresas: map[string]*entity.Empresa{
		empresaID: {
			ID:          empresaID,
			RUT:         rutEmisor,
			RazonSocial: "Comercial Andes SpA",
			Giro:        "Venta al por menor",
		},
	}}

	var gw infrasii.Gateway
	if gateway != nil {
		gw = gateway
	}
	uc := appdte.NewDocumentoUseCase(
		&fakeTxRunner{docs: docs, cafs: cafs},
		docs,
		cafs,
		empresas,
		&fakeClienteRepo{},
		infrasii.NewXMLBuilderService(),
		nil, // sin firma: el ciclo de vida no depende del certificado
		gw,
		appdte.SIIConfig{Ambiente: ambiente},
		logger.New(logger.Config{Env: "production", Level: "error"}),
	)
	return &fixture{uc: uc, docs: docs, cafs: cafs, gateway: gateway}
}

func (f *fixture) conCAF(t *testing.T, tipo string, desde, hasta int64) {
	t.Helper()
	require.NoError(t, f.cafs.Create(context.Background(), &entity.CAF{
		ID:         "caf-" + tipo,
		EmpresaID:  empresaID,
		TipoDTE:    tipo,
		RangoDesde: desde,
		RangoHasta: hasta,
		Activo:     true,
	}))
}

func itemSimple() []dto.ItemRequest {
	return []dto.ItemRequest{{
		Descripcion:    "Servicio mensual",
		Cantidad:       decimal.NewFromInt(1),
		PrecioUnitario: decimal.NewFromInt(10000),
	}}
}

func (f *fixture) crearDocumento(t *testing.T) *dto.DocumentoResponse {
	t.Helper()
	resp, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
		Tipo:        "33",
		RUTReceptor: rutCliente,
		RazonSocialReceptor: "Cliente Uno Ltda",
		Items:       itemSimple(),
	})
	require.NoError(t, err)
	return resp
}

// forzarEstado deja el documento en un estado arbitrario para probar guards.
func (f *fixture) forzarEstado(t *testing.T, id, estado string) {
	t.Helper()
	doc, err := f.docs.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	doc.Estado = estado
	require.NoError(t, f.docs.Update(context.Background(), doc))
}

// ── creación y folios ─────────────────────────────────────────────────────────

func TestCrear_AsignaFoliosCorrelativosDelCAF(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 100, 101)

	primero := f.crearDocumento(t)
	assert.Equal(t, int64(100), primero.Folio)
	assert.Equal(t, entity.EstadoPendiente, primero.Estado)
	require.Len(t, primero.Historial, 1)
	assert.Contains(t, primero.Historial[0].Detalle, "folio 100")

	segundo := f.crearDocumento(t)
	assert.Equal(t, int64(101), segundo.Folio)

	caf, err := f.cafs.GetByID(context.Background(), "caf-33")
	require.NoError(t, err)
	assert.Equal(t, int64(101), caf.UltimoFolioUsado)
}

func TestCrear_SinCAFActivo(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)

	_, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
		Tipo:                "33",
		RUTReceptor:         rutCliente,
		RazonSocialReceptor: "Cliente Uno Ltda",
		Items:               itemSimple(),
	})
	require.ErrorIs(t, err, domain.ErrSinFolios)
}

func TestCrear_CAFAgotado(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 100, 100)

	f.crearDocumento(t) // consume el único folio

	_, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
		Tipo:                "33",
		RUTReceptor:         rutCliente,
		RazonSocialReceptor: "Cliente Uno Ltda",
		Items:               itemSimple(),
	})
	require.ErrorIs(t, err, domain.ErrSinFolios)
}

func TestCrear_Validaciones(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)

	t.Run("tipo no soportado", func(t *testing.T) {
		_, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
			Tipo: "99", RUTReceptor: rutCliente, Items: itemSimple(),
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("sin items", func(t *testing.T) {
		_, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
			Tipo: "33", RUTReceptor: rutCliente,
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rut receptor inválido", func(t *testing.T) {
		_, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
			Tipo: "33", RUTReceptor: "12345678-4", Items: itemSimple(),
		})
		var rutErr *domain.RUTInvalidoError
		require.ErrorAs(t, err, &rutErr)
		assert.Equal(t, "rut_receptor", rutErr.Campo)
	})
}

// ── envío al SII ──────────────────────────────────────────────────────────────

func TestEnviar_Exitoso(t *testing.T) {
	gw := &fakeGateway{
		enviarFn: func(_ context.Context, _ string, xmlFirmado []byte, env string) (*infrasii.EnvioResult, error) {
			assert.Equal(t, pkgsii.AmbienteCertificacion, env)
			assert.NotEmpty(t, xmlFirmado)
			return &infrasii.EnvioResult{TrackID: "4242", Glosa: "Envio Recibido"}, nil
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	resp, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, resp.Estado)
	assert.Equal(t, "4242", resp.TrackID)
	require.Len(t, resp.Historial, 2)
	assert.Contains(t, resp.Historial[1].Detalle, "track id 4242")

	guardado, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, guardado.XML)
	assert.Contains(t, guardado.XML, "<DTE")
}

func TestEnviar_FallaDeGatewayDejaError(t *testing.T) {
	gw := &fakeGateway{
		enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "envio", gwErr.Operacion)

	guardado, err2 := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err2)
	assert.Equal(t, entity.EstadoError, guardado.Estado)
	assert.Empty(t, guardado.TrackID)
	assert.Contains(t, guardado.GlosaSII, "connection refused")

	eventos, err2 := f.docs.GetEventos(context.Background(), doc.ID)
	require.NoError(t, err2)
	require.Len(t, eventos, 2)
	assert.Equal(t, entity.EstadoError, eventos[1].Estado)
	assert.Contains(t, eventos[1].Detalle, "falla de envio")
}

func TestEnviar_ReintentoDesdeErrorGeneraTrackNuevo(t *testing.T) {
	intento := 0
	gw := &fakeGateway{
		enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
			intento++
			if intento == 1 {
				return nil, errors.New("timeout")
			}
			return &infrasii.EnvioResult{TrackID: fmt.Sprintf("track-%d", intento)}, nil
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)

	resp, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, resp.Estado)
	assert.Equal(t, "track-2", resp.TrackID)
	assert.Equal(t, 2, gw.envios)
}

func TestEnviar_ReintentoDesdeRechazadoConservaHistorial(t *testing.T) {
	gw := &fakeGateway{
		enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
			return &infrasii.EnvioResult{TrackID: "nuevo-track"}, nil
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	// Documento rechazado en un envío anterior, con su track id antiguo.
	guardado, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	guardado.Estado = entity.EstadoRechazado
	guardado.TrackID = "viejo-track"
	require.NoError(t, f.docs.Update(context.Background(), guardado))

	resp, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, "nuevo-track", resp.TrackID)

	eventos, err := f.docs.GetEventos(context.Background(), doc.ID)
	require.NoError(t, err)
	ultimo := eventos[len(eventos)-1]
	assert.Contains(t, ultimo.Detalle, "reintento")
	assert.Contains(t, ultimo.Detalle, "viejo-track")
}

func TestEnviar_DesdeEnviadoEsInvalido(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)
	f.forzarEstado(t, doc.ID, entity.EstadoEnviado)

	_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	var trErr *domain.TransicionInvalidaError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, entity.EstadoEnviado, trErr.Desde)
}

func TestEnviar_AmbienteDevSimulaSinGateway(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "39", 1, 10)

	resp, err := f.uc.Crear(context.Background(), empresaID, "ana", dto.CreateDocumentoRequest{
		Tipo:                "39",
		RUTReceptor:         rutCliente,
		RazonSocialReceptor: "Consumidor Final",
		Items:               itemSimple(),
	})
	require.NoError(t, err)

	enviado, err := f.uc.Enviar(context.Background(), empresaID, resp.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, enviado.Estado)
	assert.True(t, strings.HasPrefix(enviado.TrackID, "DEV-"), "track id %q", enviado.TrackID)
}

func TestEnviar_SinGatewayFueraDeDevDejaError(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "config", gwErr.Operacion)

	guardado, err2 := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err2)
	assert.Equal(t, entity.EstadoError, guardado.Estado)
}

// ── edición ───────────────────────────────────────────────────────────────────

func TestEditar_RecalculaTotales(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	resp, err := f.uc.Editar(context.Background(), empresaID, doc.ID, "ana", dto.EditDocumentoRequest{
		Items: []dto.ItemRequest{{
			Descripcion:    "Servicio anual",
			Cantidad:       decimal.NewFromInt(2),
			PrecioUnitario: decimal.NewFromInt(50000),
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.MontoNeto.Equal(decimal.NewFromInt(100000)), "neto %s", resp.MontoNeto)
	assert.True(t, resp.MontoIVA.Equal(decimal.NewFromInt(19000)), "iva %s", resp.MontoIVA)
	assert.True(t, resp.MontoTotal.Equal(decimal.NewFromInt(119000)), "total %s", resp.MontoTotal)

	eventos, err := f.docs.GetEventos(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, eventos, 2)
	assert.Contains(t, eventos[1].Detalle, "edición")
}

func TestEditar_DespuesDeEnviarEsInvalido(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)
	f.forzarEstado(t, doc.ID, entity.EstadoEnviado)

	_, err := f.uc.Editar(context.Background(), empresaID, doc.ID, "ana", dto.EditDocumentoRequest{
		RazonSocialReceptor: "Otro nombre",
	})
	var trErr *domain.TransicionInvalidaError
	require.ErrorAs(t, err, &trErr)
}

func TestEditar_SinCambios(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Editar(context.Background(), empresaID, doc.ID, "ana", dto.EditDocumentoRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── consulta de estado ────────────────────────────────────────────────────────

func TestConsultarEstado_MapeoDeEstadosSII(t *testing.T) {
	casos := []struct {
		estadoSII string
		esperado  string
	}{
		{pkgsii.EstadoSIIAceptado, entity.EstadoAceptado},
		{pkgsii.EstadoSIIReparo, entity.EstadoAceptado},
		{pkgsii.EstadoSIIRechazado, entity.EstadoRechazado},
		{pkgsii.EstadoSIIRecibido, entity.EstadoEnviado}, // sigue en proceso
	}
	for _, c := range casos {
		t.Run(c.estadoSII, func(t *testing.T) {
			gw := &fakeGateway{
				enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
					return &infrasii.EnvioResult{TrackID: "t-1"}, nil
				},
				consultarFn: func(_ context.Context, _, trackID, _ string) (*infrasii.EstadoResult, error) {
					assert.Equal(t, "t-1", trackID)
					return &infrasii.EstadoResult{Estado: c.estadoSII, Glosa: "glosa " + c.estadoSII}, nil
				},
			}
			f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
			f.conCAF(t, "33", 1, 10)
			doc := f.crearDocumento(t)
			_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
			require.NoError(t, err)

			resp, err := f.uc.ConsultarEstado(context.Background(), empresaID, doc.ID, "ana")
			require.NoError(t, err)
			assert.Equal(t, c.esperado, resp.Estado)
			assert.Equal(t, "glosa "+c.estadoSII, resp.GlosaSII)
		})
	}
}

func TestConsultarEstado_FallaDeConsultaNoMutaElDocumento(t *testing.T) {
	gw := &fakeGateway{
		enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
			return &infrasii.EnvioResult{TrackID: "t-9"}, nil
		},
		consultarFn: func(context.Context, string, string, string) (*infrasii.EstadoResult, error) {
			return nil, errors.New("503 service unavailable")
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)
	_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)

	_, err = f.uc.ConsultarEstado(context.Background(), empresaID, doc.ID, "ana")
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "consulta", gwErr.Operacion)

	guardado, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, guardado.Estado)
	assert.Equal(t, "t-9", guardado.TrackID)
}

func TestConsultarEstado_SinEnviarDevuelveSnapshot(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	resp, err := f.uc.ConsultarEstado(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, resp.Estado)
	assert.Empty(t, resp.TrackID)
}

// ── anulación y eliminación ───────────────────────────────────────────────────

func TestAnular_SoloDesdeAceptado(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Anular(context.Background(), empresaID, doc.ID, "ana", "emitido por error")
	var trErr *domain.TransicionInvalidaError
	require.ErrorAs(t, err, &trErr)

	f.forzarEstado(t, doc.ID, entity.EstadoAceptado)
	resp, err := f.uc.Anular(context.Background(), empresaID, doc.ID, "ana", "emitido por error")
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoAnulado, resp.Estado)

	eventos, err := f.docs.GetEventos(context.Background(), doc.ID)
	require.NoError(t, err)
	ultimo := eventos[len(eventos)-1]
	assert.Contains(t, ultimo.Detalle, "emitido por error")
}

func TestEliminar_SoloBorradores(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)

	borrador := f.crearDocumento(t)
	require.NoError(t, f.uc.Eliminar(context.Background(), empresaID, borrador.ID))
	_, err := f.uc.Get(context.Background(), empresaID, borrador.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	enviado := f.crearDocumento(t)
	f.forzarEstado(t, enviado.ID, entity.EstadoEnviado)
	err = f.uc.Eliminar(context.Background(), empresaID, enviado.ID)
	var trErr *domain.TransicionInvalidaError
	require.ErrorAs(t, err, &trErr)
}

// ── historial y pertenencia ───────────────────────────────────────────────────

func TestHistorial_EsAppendOnlyYCronologico(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Editar(context.Background(), empresaID, doc.ID, "ana", dto.EditDocumentoRequest{
		GiroReceptor: "Servicios",
	})
	require.NoError(t, err)
	_, err = f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
	require.NoError(t, err)

	eventos, err := f.docs.GetEventos(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, eventos, 3)
	assert.Equal(t, entity.EstadoPendiente, eventos[0].Estado)
	assert.Equal(t, entity.EstadoPendiente, eventos[1].Estado)
	assert.Equal(t, entity.EstadoEnviado, eventos[2].Estado)
	for i := 1; i < len(eventos); i++ {
		assert.False(t, eventos[i].Fecha.Before(eventos[i-1].Fecha))
	}
}

func TestOperaciones_DeOtraEmpresaSonForbidden(t *testing.T) {
	f := newFixture(t, nil, pkgsii.AmbienteDev)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	_, err := f.uc.Get(context.Background(), "emp-otra", doc.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.Enviar(context.Background(), "emp-otra", doc.ID, "ana")
	require.ErrorIs(t, err, domain.ErrForbidden)
	err = f.uc.Eliminar(context.Background(), "emp-otra", doc.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

// ── concurrencia ──────────────────────────────────────────────────────────────

// Dos envíos simultáneos del mismo documento: exactamente uno llega al SII,
// el otro observa ENVIADO y falla con transición inválida.
func TestEnviar_Concurrente(t *testing.T) {
	var mu sync.Mutex
	gw := &fakeGateway{
		enviarFn: func(context.Context, string, []byte, string) (*infrasii.EnvioResult, error) {
			mu.Lock()
			defer mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			return &infrasii.EnvioResult{TrackID: "unico"}, nil
		},
	}
	f := newFixture(t, gw, pkgsii.AmbienteCertificacion)
	f.conCAF(t, "33", 1, 10)
	doc := f.crearDocumento(t)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.uc.Enviar(context.Background(), empresaID, doc.ID, "ana")
			errs <- err
		}()
	}
	var fallas, exitos int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			var trErr *domain.TransicionInvalidaError
			require.ErrorAs(t, err, &trErr)
			fallas++
		} else {
			exitos++
		}
	}
	assert.Equal(t, 1, exitos)
	assert.Equal(t, 1, fallas)
	assert.Equal(t, 1, gw.envios)

	guardado, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, guardado.Estado)
	assert.Equal(t, "unico", guardado.TrackID)
}
