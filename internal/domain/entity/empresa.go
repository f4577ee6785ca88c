package entity

import "time"

// Empresa representa un contribuyente emisor registrado en el sistema
// (multi-empresa: cada una emite sus propios DTE).
type Empresa struct {
	ID          string
	RUT         string // RUT chileno validado al crear (módulo 11)
	RazonSocial string
	Giro        string
	Direccion   string
	Comuna      string
	Email       string
	Telefono    string
	Status      string // active, suspended, inactive
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
