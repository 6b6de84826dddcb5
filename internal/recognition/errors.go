package recognition

import (
	"errors"
	"fmt"
)

// ErrNoPlateDetected: внешний сервис не вернул ничего пригодного. Не фатально.
var ErrNoPlateDetected = errors.New("no plate detected")

const (
	CollaboratorRegions  = "regions"
	CollaboratorOCR      = "ocr"
	CollaboratorRegistry = "registry"
)

// CollaboratorError: сбой внешнего сервиса на одном кандидате.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
