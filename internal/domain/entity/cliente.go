package entity

import "time"

// Cliente representa un receptor de DTE (cliente de la empresa emisora).
type Cliente struct {
	ID          string
	EmpresaID   string
	RUT         string // validado al crear (módulo 11)
	RazonSocial string
	Giro        string
	Direccion   string
	Comuna      string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
