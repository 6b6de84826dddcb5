package recognition

import "plate-service/internal/model"

type Status string

const (
	StatusMatched              Status = "MATCHED"
	StatusDetectedUnregistered Status = "DETECTED_UNREGISTERED"
	StatusNotDetected          Status = "NOT_DETECTED"
)

// Method: как был найден номер.
type Method string

const (
	MethodDirect  Method = "DIRECT"
	MethodVariant Method = "VARIANT"
	MethodMisread Method = "MISREAD_RULE"
)

type Outcome struct {
	RequestID    string         `json:"request_id"`
	Status       Status         `json:"status"`
	Plate        string         `json:"plate,omitempty"`
	Method       Method         `json:"method,omitempty"`
	Vehicle      *model.Vehicle `json:"vehicle,omitempty"`
	DetectedText string         `json:"detected_text,omitempty"`
	Readings     []Reading      `json:"readings,omitempty"`
	ElapsedMS    int64          `json:"elapsed_ms"`
}

func Matched(plate string, vehicle *model.Vehicle, method Method) *Outcome {
	return &Outcome{Status: StatusMatched, Plate: plate, Vehicle: vehicle, Method: method}
}

func DetectedUnregistered(plate string) *Outcome {
	return &Outcome{Status: StatusDetectedUnregistered, Plate: plate}
}

func NotDetected() *Outcome {
	return &Outcome{Status: StatusNotDetected}
}
