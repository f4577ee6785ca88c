// seed_comunas genera un script SQL para poblar las tablas paramétricas de
// regiones y comunas a partir del CSV oficial de códigos únicos territoriales
// (publicado en ISO-8859-1, separado por punto y coma).
//
// Columnas esperadas: CUT_REG;REGION;CUT_COM;COMUNA
//
// Uso: go run ./cmd/seed_comunas [ruta/comunas.csv]
// Por defecto busca comunas.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_comunas.sql
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func main() {
	csvPath := "comunas.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// El CSV oficial viene en Latin-1; decodificar a UTF-8 al leer.
	reader := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	regiones := make(map[string]string)
	type comuna struct{ cut, nombre, cutRegion string }
	var comunas []comuna
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			// Cabecera o fila incompleta
			continue
		}
		cutReg := strings.TrimSpace(rec[0])
		region := strings.TrimSpace(rec[1])
		cutCom := strings.TrimSpace(rec[2])
		nombre := strings.TrimSpace(rec[3])
		if cutReg == "" || region == "" || cutCom == "" || nombre == "" {
			continue
		}
		regiones[cutReg] = region
		comunas = append(comunas, comuna{cut: cutCom, nombre: nombre, cutRegion: cutReg})
	}
	if len(comunas) == 0 {
		fmt.Fprintln(os.Stderr, "CSV sin filas de comunas")
		os.Exit(1)
	}

	// Orden estable por código para que el script sea reproducible.
	var cutRegs []string
	for c := range regiones {
		cutRegs = append(cutRegs, c)
	}
	sort.Strings(cutRegs)
	sort.Slice(comunas, func(i, j int) bool { return comunas[i].cut < comunas[j].cut })

	var sb strings.Builder
	sb.WriteString("-- Generado por cmd/seed_comunas a partir del CSV de códigos únicos territoriales.\n\n")
	sb.WriteString("CREATE TABLE IF NOT EXISTS regiones (\n")
	sb.WriteString("    cut    VARCHAR(2) PRIMARY KEY,\n")
	sb.WriteString("    nombre VARCHAR(100) NOT NULL\n);\n\n")
	sb.WriteString("CREATE TABLE IF NOT EXISTS comunas (\n")
	sb.WriteString("    cut        VARCHAR(5) PRIMARY KEY,\n")
	sb.WriteString("    nombre     VARCHAR(100) NOT NULL,\n")
	sb.WriteString("    region_cut VARCHAR(2) NOT NULL REFERENCES regiones(cut)\n);\n\n")

	sb.WriteString("INSERT INTO regiones (cut, nombre) VALUES\n")
	for i, cut := range cutRegs {
		sep := ","
		if i == len(cutRegs)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "    ('%s', '%s')%s\n", cut, sqlEscape(regiones[cut]), sep)
	}
	sb.WriteString("ON CONFLICT (cut) DO NOTHING;\n\n")

	sb.WriteString("INSERT INTO comunas (cut, nombre, region_cut) VALUES\n")
	for i, c := range comunas {
		sep := ","
		if i == len(comunas)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "    ('%s', '%s', '%s')%s\n", c.cut, sqlEscape(c.nombre), c.cutRegion, sep)
	}
	sb.WriteString("ON CONFLICT (cut) DO NOTHING;\n")

	outPath := filepath.Join("internal", "infrastructure", "postgres", "migrations", "002_seed_comunas.sql")
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %d regiones, %d comunas → %s\n", len(cutRegs), len(comunas), outPath)
}

// sqlEscape duplica comillas simples para literales SQL.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
