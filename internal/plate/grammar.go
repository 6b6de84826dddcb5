// Package plate содержит грамматику номеров, исправление OCR и генерацию вариантов.
package plate

import (
	"errors"
	"unicode"

	"plate-service/internal/utils"
)

// Length: длина любого канонического номера.
const Length = 6

// prefixLength: число ведущих букв в обоих форматах.
const prefixLength = 3

var ErrGrammarRejected = errors.New("plate rejected by grammar")

// Shape: формат номера, которому соответствует строка.
type Shape int

const (
	ShapeInvalid Shape = iota
	// ShapeLettersDigits: AAA999.
	ShapeLettersDigits
	// ShapeLettersDigitsLetter: AAA99A.
	ShapeLettersDigitsLetter
)

func (s Shape) String() string {
	switch s {
	case ShapeLettersDigits:
		return "AAA999"
	case ShapeLettersDigitsLetter:
		return "AAA99A"
	default:
		return "invalid"
	}
}

// Classify очищает текст и определяет формат номера.
func Classify(text string) Shape {
	r := []rune(utils.NormalizePlate(text))
	if len(r) != Length {
		return ShapeInvalid
	}
	if !allLetters(r[:prefixLength]) {
		return ShapeInvalid
	}
	switch {
	case allDigits(r[prefixLength:]):
		return ShapeLettersDigits
	case allDigits(r[prefixLength:Length-1]) && unicode.IsLetter(r[Length-1]):
		return ShapeLettersDigitsLetter
	default:
		return ShapeInvalid
	}
}

// IsValid проверяет строку по грамматике номеров.
func IsValid(text string) bool {
	return Classify(text) != ShapeInvalid
}

// Validate возвращает очищенный номер или ErrGrammarRejected.
func Validate(text string) (string, error) {
	if !IsValid(text) {
		return "", ErrGrammarRejected
	}
	return utils.NormalizePlate(text), nil
}

func allLetters(r []rune) bool {
	for _, c := range r {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}

func allDigits(r []rune) bool {
	for _, c := range r {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
