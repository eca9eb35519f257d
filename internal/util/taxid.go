package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizeTaxID keeps only the digits of a business identifier (CPF/CNPJ style),
// so "123.456.789-09" and "12345678909" enroll the same customer.
func NormalizeTaxID(raw string) string {
	return nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
}
