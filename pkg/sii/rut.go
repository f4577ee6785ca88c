package sii

import "strings"

// ValidarRUT valida que el RUT chileno (con o sin puntos/guión) tenga un dígito
// verificador correcto según el algoritmo módulo 11 del SII.
// rut puede ser "12.345.678-5", "12345678-5" o "123456785".
func ValidarRUT(rut string) bool {
	cuerpo, dv, ok := separarRUT(rut)
	if !ok {
		return false
	}
	return strings.ToUpper(dv) == string(DigitoVerificador(cuerpo))
}

// DigitoVerificador calcula el dígito verificador para el cuerpo del RUT
// (solo dígitos, sin DV). Pesos cíclicos 2,3,4,5,6,7 desde el dígito menos
// significativo; 11-(suma mod 11): 11 → '0', 10 → 'K'.
// Si el cuerpo está vacío o contiene caracteres no numéricos retorna 0.
func DigitoVerificador(cuerpo string) byte {
	if cuerpo == "" {
		return 0
	}
	suma := 0
	multiplo := 2
	for i := len(cuerpo) - 1; i >= 0; i-- {
		c := cuerpo[i]
		if c < '0' || c > '9' {
			return 0
		}
		suma += int(c-'0') * multiplo
		if multiplo < 7 {
			multiplo++
		} else {
			multiplo = 2
		}
	}
	switch esperado := 11 - (suma % 11); esperado {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + esperado)
	}
}

// FormatearRUT devuelve el RUT con puntos de miles y guión (ej: "12.345.678-5").
// Es un helper de presentación, no un validador: con entrada malformada
// (cuerpo vacío tras limpiar) retorna cadena vacía en vez de fallar.
func FormatearRUT(rut string) string {
	limpio := limpiarRUT(rut)
	if len(limpio) < 2 {
		return ""
	}
	dv := strings.ToUpper(limpio[len(limpio)-1:])
	cuerpo := limpio[:len(limpio)-1]

	var sb strings.Builder
	for i, c := range cuerpo {
		resto := len(cuerpo) - i
		if i > 0 && resto%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(c)
	}
	return sb.String() + "-" + dv
}

// FormatearRUTPlano devuelve el RUT sin puntos de miles pero con guión
// ("76123456-0"), el formato que piden los campos RUTEmisor/RUTRecep del
// esquema del SII. Con entrada malformada retorna cadena vacía.
func FormatearRUTPlano(rut string) string {
	limpio := limpiarRUT(rut)
	if len(limpio) < 2 {
		return ""
	}
	dv := strings.ToUpper(limpio[len(limpio)-1:])
	return limpio[:len(limpio)-1] + "-" + dv
}

// separarRUT limpia el RUT y lo divide en cuerpo y dígito verificador.
// ok es false si el cuerpo queda vacío o no es numérico.
func separarRUT(rut string) (cuerpo, dv string, ok bool) {
	limpio := limpiarRUT(rut)
	if len(limpio) < 2 {
		return "", "", false
	}
	dv = limpio[len(limpio)-1:]
	cuerpo = limpio[:len(limpio)-1]
	for i := 0; i < len(cuerpo); i++ {
		if cuerpo[i] < '0' || cuerpo[i] > '9' {
			return "", "", false
		}
	}
	return cuerpo, dv, true
}

func limpiarRUT(rut string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return -1
		}
		return r
	}, rut)
}
