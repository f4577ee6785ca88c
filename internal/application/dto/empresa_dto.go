package dto

import "time"

// CreateEmpresaRequest body para POST /api/empresas.
type CreateEmpresaRequest struct {
	RUT         string `json:"rut"`
	RazonSocial string `json:"razon_social"`
	Giro        string `json:"giro,omitempty"`
	Direccion   string `json:"direccion,omitempty"`
	Comuna      string `json:"comuna,omitempty"`
	Email       string `json:"email,omitempty"`
	Telefono    string `json:"telefono,omitempty"`
}

// EmpresaResponse empresa en respuestas.
type EmpresaResponse struct {
	ID          string `json:"id"`
	RUT         string `json:"rut"` // formateado con puntos y guión
	RazonSocial string `json:"razon_social"`
	Giro        string `json:"giro,omitempty"`
	Direccion   string `json:"direccion,omitempty"`
	Comuna      string `json:"comuna,omitempty"`
	Email       string `json:"email,omitempty"`
	Telefono    string `json:"telefono,omitempty"`
	Status      string `json:"status"`
}

// CreateClienteRequest body para POST /api/clientes.
type CreateClienteRequest struct {
	RUT         string `json:"rut"`
	RazonSocial string `json:"razon_social"`
	Giro        string `json:"giro,omitempty"`
	Direccion   string `json:"direccion,omitempty"`
	Comuna      string `json:"comuna,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ClienteResponse receptor en respuestas.
type ClienteResponse struct {
	ID          string `json:"id"`
	EmpresaID   string `json:"empresa_id"`
	RUT         string `json:"rut"`
	RazonSocial string `json:"razon_social"`
	Giro        string `json:"giro,omitempty"`
	Direccion   string `json:"direccion,omitempty"`
	Comuna      string `json:"comuna,omitempty"`
	Email       string `json:"email,omitempty"`
}

// CreateCAFRequest body para POST /api/caf (carga de rango de folios).
type CreateCAFRequest struct {
	Tipo              string `json:"tipo"`
	RangoDesde        int64  `json:"rango_desde"`
	RangoHasta        int64  `json:"rango_hasta"`
	FechaAutorizacion string `json:"fecha_autorizacion,omitempty"` // YYYY-MM-DD
}

// CAFResponse CAF en respuestas.
type CAFResponse struct {
	ID                string `json:"id"`
	EmpresaID         string `json:"empresa_id"`
	Tipo              string `json:"tipo"`
	RangoDesde        int64  `json:"rango_desde"`
	RangoHasta        int64  `json:"rango_hasta"`
	UltimoFolioUsado  int64  `json:"ultimo_folio_usado"`
	FoliosDisponibles int64  `json:"folios_disponibles"`
	Activo            bool   `json:"activo"`
}

// RegisterRequest body para POST /api/auth/register.
type RegisterRequest struct {
	EmpresaID string `json:"empresa_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// LoginRequest body para POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse usuario en respuestas (nunca incluye el hash).
type UserResponse struct {
	ID        string    `json:"id"`
	EmpresaID string    `json:"empresa_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse token + usuario autenticado.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
