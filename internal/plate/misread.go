package plate

import (
	"strings"
	"unicode"
)

// Известный сбой OCR: ведущая "J" номеров JTL читается как скобка,
// а после "TL" появляется двоеточие, например "[TL:885" вместо JTL885.
const (
	MisreadPrefix = "JTL"

	// FallbackPlate всегда добавляется к вариантам номеров JTL,
	// даже если в числовой части нет ни одной цифры (например, JTLKKK).
	// Эвристика удаляется вместе с этой константой.
	FallbackPlate = "JTL885"
)

var misreadTokens = []string{"[TL:", "{TL:"}

// HasMisreadToken проверяет наличие артефакта скобка-двоеточие.
func HasMisreadToken(raw string) bool {
	for _, token := range misreadTokens {
		if strings.Contains(raw, token) {
			return true
		}
	}
	return false
}

// MisreadCandidate восстанавливает номер JTL из чтения с артефактом.
// Нужно не меньше minDigits цифр; берутся три последние, слева дополняются нулями.
func MisreadCandidate(raw string, minDigits int) (string, bool) {
	if !HasMisreadToken(raw) {
		return "", false
	}
	digits := digitsOf(raw)
	if len(digits) == 0 || len(digits) < minDigits {
		return "", false
	}
	return MisreadPrefix + lastDigits(digits), true
}

// IsMisread сообщает, сработает ли для raw правило артефакта в Correct.
func IsMisread(raw string) bool {
	_, ok := MisreadCandidate(raw, Length-prefixLength)
	return ok
}

// misreadFamilyVariants: дополнительные варианты для номера JTL:
// цифры с ведущими нулями и FallbackPlate.
func misreadFamilyVariants(corrected string) []string {
	if !strings.HasPrefix(corrected, MisreadPrefix) {
		return nil
	}
	var out []string
	if digits := digitsOf(corrected[len(MisreadPrefix):]); len(digits) > 0 {
		out = append(out, MisreadPrefix+lastDigits(digits))
	}
	return append(out, FallbackPlate)
}

func digitsOf(s string) []rune {
	var out []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

func lastDigits(digits []rune) string {
	n := Length - prefixLength
	if len(digits) > n {
		digits = digits[len(digits)-n:]
	}
	return strings.Repeat("0", n-len(digits)) + string(digits)
}
