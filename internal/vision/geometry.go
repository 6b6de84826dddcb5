// Package vision: локальный поиск областей номера (OpenCV) и OCR (Tesseract).
// Полная реализация собирается с тегом vision, иначе NewLocal возвращает ErrUnavailable.
package vision

import (
	"errors"
	"image"
	"sort"
)

var ErrUnavailable = errors.New("local vision backend is not compiled in, rebuild with -tags vision")

const (
	DefaultMaxContours = 10
	// approxEpsilon: точность аппроксимации контура в пикселях.
	approxEpsilon = 10.0
	plateVertices = 4
)

// plateChars: допустимые символы OCR. Скобки и двоеточие нужны, чтобы
// сохранить артефакт "[TL:" для исправления номера.
const plateChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-:[{"

type contour struct {
	area     float64
	vertices int
	bounds   image.Rectangle
}

// plateCandidates берёт maxContours самых крупных контуров и оставляет четырёхугольники.
// Порядок по убыванию площади, при равенстве сохраняется исходный.
func plateCandidates(contours []contour, maxContours int) []contour {
	if maxContours <= 0 {
		maxContours = DefaultMaxContours
	}
	sorted := make([]contour, len(contours))
	copy(sorted, contours)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].area > sorted[j].area
	})
	if len(sorted) > maxContours {
		sorted = sorted[:maxContours]
	}

	out := make([]contour, 0, len(sorted))
	for _, c := range sorted {
		if c.vertices == plateVertices {
			out = append(out, c)
		}
	}
	return out
}

func clampRect(r image.Rectangle, width, height int) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, width, height))
}
