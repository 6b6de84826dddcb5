// Package recognition связывает поиск областей, OCR, исправление номера и реестр.
package recognition

import (
	"context"
	"fmt"
	"image"

	"plate-service/internal/model"
)

// FullFrame: источник чтений OCR по всему кадру.
const FullFrame = "full-frame"

// Region: кандидат области номера от внешнего детектора.
type Region struct {
	Index  int             `json:"index"`
	Area   float64         `json:"area"`
	Bounds image.Rectangle `json:"bounds"`
	Raster []byte          `json:"-"`
}

// Scan: результат поиска областей. Frame содержит подготовленный кадр для OCR
// по всему изображению; если пуст, используется исходное изображение.
type Scan struct {
	Regions []Region
	Frame   []byte
}

// Text: строка, прочитанная OCR.
type Text struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Reading: сырое чтение OCR с указанием источника.
type Reading struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Region    int    `json:"-"`
	Corrected string `json:"corrected,omitempty"`
}

func regionReading(region Region, text string) Reading {
	return Reading{Text: text, Source: fmt.Sprintf("region-%d", region.Index), Region: region.Index}
}

func frameReading(text string) Reading {
	return Reading{Text: text, Source: FullFrame, Region: -1}
}

// FromRegion: чтения по областям надёжнее чтений по всему кадру.
func (r Reading) FromRegion() bool {
	return r.Region >= 0
}

// Request: состояние одного запуска распознавания.
type Request struct {
	ID    string
	Image []byte
}

type RegionSource interface {
	Regions(ctx context.Context, frame []byte) (*Scan, error)
}

type TextReader interface {
	ReadRegion(ctx context.Context, region Region) (string, error)
	ReadFrame(ctx context.Context, frame []byte) ([]Text, error)
}

// Registry возвращает (nil, nil), если номер не найден.
type Registry interface {
	GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error)
}
