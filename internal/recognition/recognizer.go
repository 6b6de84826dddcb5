package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"plate-service/internal/model"
	"plate-service/internal/plate"
)

const (
	DefaultMaxRegions    = 10
	DefaultMinRegionText = 5
	DefaultMinFrameText  = 4

	// misreadLookupDigits: сколько цифр нужно для упреждающего поиска по артефакту.
	misreadLookupDigits = 2
)

type Options struct {
	MaxRegions    int
	MinRegionText int
	MinFrameText  int
}

func DefaultOptions() Options {
	return Options{
		MaxRegions:    DefaultMaxRegions,
		MinRegionText: DefaultMinRegionText,
		MinFrameText:  DefaultMinFrameText,
	}
}

// Recognizer выполняет распознавание синхронно в вызывающей горутине.
// Между запусками состояние не хранится, параллельные вызовы Recognize безопасны,
// если безопасны внешние сервисы.
type Recognizer struct {
	regions  RegionSource
	reader   TextReader
	registry Registry
	opts     Options
	log      zerolog.Logger
	metrics  *Metrics
}

// NewRecognizer создаёт оркестратор. regions может быть nil: тогда сразу
// выполняется OCR по всему кадру. metrics может быть nil.
func NewRecognizer(
	regions RegionSource,
	reader TextReader,
	registry Registry,
	opts Options,
	log zerolog.Logger,
	metrics *Metrics,
) *Recognizer {
	if opts.MaxRegions <= 0 {
		opts.MaxRegions = DefaultMaxRegions
	}
	if opts.MinRegionText <= 0 {
		opts.MinRegionText = DefaultMinRegionText
	}
	if opts.MinFrameText <= 0 {
		opts.MinFrameText = DefaultMinFrameText
	}
	return &Recognizer{
		regions:  regions,
		reader:   reader,
		registry: registry,
		opts:     opts,
		log:      log,
		metrics:  metrics,
	}
}

// run: состояние одного запуска.
type run struct {
	req      Request
	log      zerolog.Logger
	scan     *Scan
	primary  *Reading
	frame    []Reading
	detected string
	tried    map[string]struct{}

	// misread: кандидат правила артефакта, не найденный в реестре.
	misread     string
	misreadText string
}

func (st *run) readings() []Reading {
	out := make([]Reading, 0, len(st.frame)+1)
	if st.primary != nil {
		out = append(out, *st.primary)
	}
	return append(out, st.frame...)
}

// Recognize всегда возвращает результат: сбои внешних сервисов пропускают
// отдельного кандидата, в худшем случае получается NotDetected.
func (r *Recognizer) Recognize(ctx context.Context, req Request) *Outcome {
	start := time.Now()
	st := &run{
		req:   req,
		log:   r.log.With().Str("request_id", req.ID).Logger(),
		tried: make(map[string]struct{}),
	}

	out := r.recognize(ctx, st)
	out.RequestID = req.ID
	out.DetectedText = st.detected
	out.Readings = st.readings()

	elapsed := time.Since(start)
	out.ElapsedMS = elapsed.Milliseconds()
	r.metrics.observeOutcome(out, elapsed)

	st.log.Info().
		Str("status", string(out.Status)).
		Str("plate", out.Plate).
		Str("method", string(out.Method)).
		Int("lookups", len(st.tried)).
		Dur("elapsed", elapsed).
		Msg("recognition finished")
	return out
}

func (r *Recognizer) recognize(ctx context.Context, st *run) *Outcome {
	r.scanRegions(ctx, st)
	if st.primary != nil {
		if canonical, ok := st.normalize(st.primary); ok {
			return r.resolve(ctx, st, st.primary, canonical)
		}
		st.log.Debug().Str("text", st.primary.Text).Msg("primary reading unusable, falling back to full frame")
	}

	r.readFrame(ctx, st)
	if out := r.matchMisread(ctx, st); out != nil {
		return out
	}
	for i := range st.frame {
		if canonical, ok := st.normalize(&st.frame[i]); ok {
			return r.resolve(ctx, st, &st.frame[i], canonical)
		}
	}
	return r.searchSeeds(ctx, st)
}

// scanRegions ищет первое чтение по областям длиной не меньше MinRegionText.
func (r *Recognizer) scanRegions(ctx context.Context, st *run) {
	if r.regions == nil {
		return
	}

	var scan *Scan
	err := r.guard(CollaboratorRegions, "regions", func() error {
		var err error
		scan, err = r.regions.Regions(ctx, st.req.Image)
		return err
	})
	if err != nil {
		r.fail(st, err, "")
		return
	}
	if scan == nil {
		return
	}
	st.scan = scan

	regions := scan.Regions
	if len(regions) > r.opts.MaxRegions {
		regions = regions[:r.opts.MaxRegions]
	}
	for _, region := range regions {
		var text string
		err := r.guard(CollaboratorOCR, "read_region", func() error {
			var err error
			text, err = r.reader.ReadRegion(ctx, region)
			return err
		})
		if err != nil {
			r.fail(st, err, fmt.Sprintf("region-%d", region.Index))
			continue
		}
		if utf8.RuneCountInString(text) < r.opts.MinRegionText {
			st.log.Debug().Int("region", region.Index).Str("text", text).Msg("region text too short")
			continue
		}
		reading := regionReading(region, text)
		st.primary = &reading
		return
	}
}

func (r *Recognizer) readFrame(ctx context.Context, st *run) {
	frame := st.req.Image
	if st.scan != nil && len(st.scan.Frame) > 0 {
		frame = st.scan.Frame
	}

	var texts []Text
	err := r.guard(CollaboratorOCR, "read_frame", func() error {
		var err error
		texts, err = r.reader.ReadFrame(ctx, frame)
		return err
	})
	if err != nil {
		r.fail(st, err, FullFrame)
		return
	}
	for _, t := range texts {
		if utf8.RuneCountInString(t.Value) >= r.opts.MinFrameText {
			st.frame = append(st.frame, frameReading(t.Value))
		}
	}
}

// matchMisread: упреждающий поиск по артефакту "[TL:" в чтениях всего кадра.
func (r *Recognizer) matchMisread(ctx context.Context, st *run) *Outcome {
	for i := range st.frame {
		candidate, ok := plate.MisreadCandidate(st.frame[i].Text, misreadLookupDigits)
		if !ok || !plate.IsValid(candidate) {
			continue
		}
		if vehicle, found := r.lookup(ctx, st, candidate); found {
			st.frame[i].Corrected = candidate
			st.detected = st.frame[i].Text
			return Matched(candidate, vehicle, MethodMisread)
		}
		if st.misread == "" {
			st.misread = candidate
			st.misreadText = st.frame[i].Text
		}
	}
	return nil
}

func (st *run) normalize(reading *Reading) (string, bool) {
	corrected, ok := plate.Correct(reading.Text)
	if !ok {
		st.log.Debug().Str("source", reading.Source).Str("text", reading.Text).Msg("reading too short for a plate")
		return "", false
	}
	reading.Corrected = corrected
	if !plate.IsValid(corrected) {
		st.log.Debug().Str("source", reading.Source).Str("corrected", corrected).Msg("plate grammar rejected reading")
		return "", false
	}
	return corrected, true
}

func (r *Recognizer) resolve(ctx context.Context, st *run, reading *Reading, canonical string) *Outcome {
	st.detected = reading.Text

	method := MethodDirect
	if plate.IsMisread(reading.Text) {
		method = MethodMisread
	}
	if vehicle, found := r.lookup(ctx, st, canonical); found {
		return Matched(canonical, vehicle, method)
	}

	variants := plate.Variants(canonical)
	r.metrics.observeVariants(len(variants))
	if out := r.tryVariants(ctx, st, variants); out != nil {
		return out
	}
	return DetectedUnregistered(canonical)
}

// searchSeeds: последняя попытка: варианты от лучших исправлений всех чтений,
// ни одно из которых не прошло грамматику.
func (r *Recognizer) searchSeeds(ctx context.Context, st *run) *Outcome {
	var firstVariant string
	seen := make(map[string]struct{})

	for _, reading := range st.readings() {
		seed := reading.Corrected
		if seed == "" {
			continue
		}
		if _, dup := seen[seed]; dup {
			continue
		}
		seen[seed] = struct{}{}

		variants := plate.Variants(seed)
		r.metrics.observeVariants(len(variants))
		if len(variants) == 0 {
			continue
		}
		if firstVariant == "" {
			firstVariant = variants[0]
			st.detected = reading.Text
		}
		if out := r.tryVariants(ctx, st, variants); out != nil {
			st.detected = reading.Text
			return out
		}
	}

	if firstVariant != "" {
		return DetectedUnregistered(firstVariant)
	}
	if st.misread != "" {
		st.detected = st.misreadText
		return DetectedUnregistered(st.misread)
	}
	return NotDetected()
}

func (r *Recognizer) tryVariants(ctx context.Context, st *run, variants []string) *Outcome {
	for _, v := range variants {
		if vehicle, found := r.lookup(ctx, st, v); found {
			return Matched(v, vehicle, MethodVariant)
		}
	}
	return nil
}

// lookup обращается к реестру не больше одного раза на номер за запуск.
func (r *Recognizer) lookup(ctx context.Context, st *run, candidate string) (*model.Vehicle, bool) {
	if _, done := st.tried[candidate]; done {
		return nil, false
	}
	st.tried[candidate] = struct{}{}

	var vehicle *model.Vehicle
	err := r.guard(CollaboratorRegistry, "lookup", func() error {
		var err error
		vehicle, err = r.registry.GetByPlate(ctx, candidate)
		return err
	})
	if err != nil {
		r.metrics.observeLookup("error")
		r.fail(st, err, candidate)
		return nil, false
	}
	if vehicle == nil {
		r.metrics.observeLookup("miss")
		st.log.Debug().Str("plate", candidate).Msg("plate not in registry")
		return nil, false
	}
	r.metrics.observeLookup("hit")
	return vehicle, true
}

// guard превращает ошибку или панику внешнего сервиса в CollaboratorError.
func (r *Recognizer) guard(collaborator, op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CollaboratorError{Collaborator: collaborator, Op: op, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if err := fn(); err != nil {
		return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
	}
	return nil
}

func (r *Recognizer) fail(st *run, err error, candidate string) {
	if errors.Is(err, ErrNoPlateDetected) {
		st.log.Debug().Str("candidate", candidate).Msg("collaborator returned nothing usable")
		return
	}

	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		ce = &CollaboratorError{Err: err}
	}
	r.metrics.observeFailure(ce.Collaborator, ce.Op)
	st.log.Error().
		Err(ce.Err).
		Str("collaborator", ce.Collaborator).
		Str("op", ce.Op).
		Str("candidate", candidate).
		Msg("collaborator failed, candidate skipped")
}
