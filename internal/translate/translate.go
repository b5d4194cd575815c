// Package translate turns non-English queries into English for intent
// classification and ranking.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/pkg/utils"
)

// English is the target language of every translation.
const English = "en"

var (
	ErrNoTranslator     = errors.New("translate: no translator configured")
	ErrUnsupported      = errors.New("translate: language pair not supported")
	ErrEmptyTranslation = errors.New("translate: empty translation")
)

// Translator translates text between ISO-639-1 languages.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Result of ToEnglish. When Fallback is set Text is the untranslated input and
// Err holds the cause.
type Result struct {
	Text     string
	Fallback bool
	Err      error
}

// Service wraps a Translator with pass-through and fallback rules.
type Service struct {
	translator Translator
	logger     *zap.Logger
}

// NewService returns a Service. A nil translator makes every non-English
// input fall back to the original text.
func NewService(t Translator, logger *zap.Logger) *Service {
	return &Service{translator: t, logger: utils.OrNop(logger)}
}

// ToEnglish returns text unchanged for English and otherwise the translated
// text. It never fails; errors are reported through Result.
func (s *Service) ToEnglish(ctx context.Context, text, lang string) Result {
	if lang == English {
		return Result{Text: text}
	}
	if s.translator == nil {
		return s.fallback(text, lang, ErrNoTranslator)
	}
	out, err := s.translator.Translate(ctx, text, lang, English)
	if err != nil {
		return s.fallback(text, lang, fmt.Errorf("translate %s->%s: %w", lang, English, err))
	}
	if strings.TrimSpace(out) == "" {
		return s.fallback(text, lang, ErrEmptyTranslation)
	}
	return Result{Text: out}
}

func (s *Service) fallback(text, lang string, err error) Result {
	s.logger.Debug("translation fell back to original text",
		zap.String("language", lang),
		zap.Error(err),
	)
	return Result{Text: text, Fallback: true, Err: err}
}
