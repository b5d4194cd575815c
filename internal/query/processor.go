// Package query turns a raw user message into a models.QueryRecord.
package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/language"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/translate"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// Translator is satisfied by *translate.Service.
type Translator interface {
	ToEnglish(ctx context.Context, text, lang string) translate.Result
}

// Classifier is satisfied by *intent.Classifier.
type Classifier interface {
	Classify(text string) string
}

// EntityExtractor is satisfied by *entity.Router.
type EntityExtractor interface {
	Extract(ctx context.Context, text, lang string) ([]models.Entity, error)
}

// Processor runs detection, translation, intent classification and entity
// extraction. It holds no mutable state and is safe for concurrent use.
type Processor struct {
	detector   language.Detector
	translator Translator
	classifier Classifier
	entities   EntityExtractor
	logger     *zap.Logger
}

// NewProcessor wires the four stages.
func NewProcessor(d language.Detector, t Translator, c Classifier, e EntityExtractor, logger *zap.Logger) *Processor {
	return &Processor{detector: d, translator: t, classifier: c, entities: e, logger: utils.OrNop(logger)}
}

// Process never fails. Stage failures degrade to defaults and are flagged on
// the record: language falls back to "en", translation to the original text
// and entities to an empty list.
func (p *Processor) Process(ctx context.Context, text string) *models.QueryRecord {
	rec := &models.QueryRecord{Original: text, Entities: []models.Entity{}}

	det := p.detector.Detect(text)
	rec.Language = det.Code
	rec.LanguageFallback = det.Fallback
	if det.Fallback {
		p.logger.Debug("language detection fell back", zap.String("language", det.Code), zap.Error(det.Err))
	}

	tr := p.translator.ToEnglish(ctx, text, rec.Language)
	rec.Translated = tr.Text
	rec.TranslationFallback = tr.Fallback

	rec.Intent = p.classifier.Classify(rec.Translated)

	// Entities come from the original text, with the model of its language.
	ents, err := p.entities.Extract(ctx, text, rec.Language)
	if err != nil {
		rec.EntityFallback = true
		p.logger.Debug("entity extraction failed", zap.String("language", rec.Language), zap.Error(err))
	} else if len(ents) > 0 {
		rec.Entities = ents
	}
	return rec
}
