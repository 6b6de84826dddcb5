package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-service/internal/model"
	"plate-service/internal/plate"
	"plate-service/internal/recognition"
	"plate-service/internal/repository"
	"plate-service/internal/utils"
)

// Publisher рассылает результат распознавания (MQTT и т.п.).
type Publisher interface {
	Publish(ctx context.Context, outcome *recognition.Outcome) error
}

type RecognitionService struct {
	recognizer *recognition.Recognizer
	eventRepo  *repository.RecognitionEventRepository
	publisher  Publisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewRecognitionService: publisher может быть nil.
func NewRecognitionService(
	recognizer *recognition.Recognizer,
	eventRepo *repository.RecognitionEventRepository,
	publisher Publisher,
	log zerolog.Logger,
) *RecognitionService {
	return &RecognitionService{
		recognizer: recognizer,
		eventRepo:  eventRepo,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

func (s *RecognitionService) Recognize(ctx context.Context, principal model.Principal, image []byte) (*recognition.Outcome, error) {
	if !principal.IsAdmin() && !principal.IsGuard() {
		return nil, ErrPermissionDenied
	}
	if len(image) == 0 {
		return nil, ErrInvalidInput
	}

	out := s.recognizer.Recognize(ctx, recognition.Request{
		ID:    uuid.NewString(),
		Image: image,
	})

	// журнал и рассылка не влияют на ответ на въезде
	if err := s.eventRepo.Create(ctx, newRecognitionEvent(out, s.now())); err != nil {
		s.log.Error().Err(err).Str("request_id", out.RequestID).Msg("failed to record recognition")
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, out); err != nil {
			s.log.Warn().Err(err).Str("request_id", out.RequestID).Msg("failed to publish recognition")
		}
	}
	return out, nil
}

func newRecognitionEvent(out *recognition.Outcome, detectedAt time.Time) *model.RecognitionEvent {
	event := &model.RecognitionEvent{
		RequestID:    out.RequestID,
		Status:       string(out.Status),
		Method:       string(out.Method),
		PlateNumber:  out.Plate,
		DetectedText: truncate(out.DetectedText, 128),
		ElapsedMS:    out.ElapsedMS,
		DetectedAt:   detectedAt.UTC(),
	}
	if out.Vehicle != nil {
		id := out.Vehicle.ID
		event.VehicleID = &id
	}
	return event
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type JournalInput struct {
	Status string
	Plate  string
	From   string
	To     string
	Limit  int
}

func (s *RecognitionService) Journal(ctx context.Context, principal model.Principal, input JournalInput) ([]model.RecognitionEvent, error) {
	if !principal.IsAdmin() && !principal.IsGuard() {
		return nil, ErrPermissionDenied
	}

	filter := repository.RecognitionEventFilter{
		PlateNumber: utils.NormalizePlate(input.Plate),
		Limit:       input.Limit,
	}
	if input.Status != "" {
		status := recognition.Status(strings.ToUpper(input.Status))
		switch status {
		case recognition.StatusMatched, recognition.StatusDetectedUnregistered, recognition.StatusNotDetected:
		default:
			return nil, ErrInvalidInput
		}
		raw := string(status)
		filter.Status = &raw
	}
	if input.From != "" {
		from, err := time.Parse(time.RFC3339, input.From)
		if err != nil {
			return nil, ErrInvalidInput
		}
		from = from.UTC()
		filter.From = &from
	}
	if input.To != "" {
		to, err := time.Parse(time.RFC3339, input.To)
		if err != nil {
			return nil, ErrInvalidInput
		}
		to = to.UTC()
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, ErrInvalidInput
	}

	return s.eventRepo.List(ctx, filter)
}

// PlateAnalysis: разбор текста без обращения к реестру.
type PlateAnalysis struct {
	Input     string   `json:"input"`
	Cleaned   string   `json:"cleaned"`
	Corrected string   `json:"corrected,omitempty"`
	Shape     string   `json:"shape"`
	Valid     bool     `json:"valid"`
	Misread   bool     `json:"misread"`
	Variants  []string `json:"variants"`
}

func AnalyzePlate(text string) (*PlateAnalysis, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	analysis := &PlateAnalysis{
		Input:    text,
		Cleaned:  utils.NormalizePlate(text),
		Misread:  plate.IsMisread(text),
		Variants: []string{},
	}
	corrected, ok := plate.Correct(text)
	if !ok {
		analysis.Shape = plate.ShapeInvalid.String()
		return analysis, nil
	}

	analysis.Corrected = corrected
	analysis.Shape = plate.Classify(corrected).String()
	analysis.Valid = plate.IsValid(corrected)
	if variants := plate.Variants(corrected); variants != nil {
		analysis.Variants = variants
	}
	return analysis, nil
}
