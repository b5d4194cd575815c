package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/ayuda/internal/entity"
	"github.com/hyperjump/ayuda/internal/intent"
	"github.com/hyperjump/ayuda/internal/language"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/translate"
)

type fixedDetector struct{ res language.Result }

func (f fixedDetector) Detect(string) language.Result { return f.res }

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) ([]models.Entity, error) {
	return nil, errors.New("model missing")
}

func newProcessor(t *testing.T, det language.Detector, tr translate.Translator, ex entity.Extractor) *Processor {
	t.Helper()
	cls, err := intent.NewClassifier(intent.DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	if ex == nil {
		ex = entity.NewSpanishExtractor()
	}
	router, err := entity.NewRouterWith(map[string]entity.Extractor{"es": ex}, entity.ModelNone)
	if err != nil {
		t.Fatal(err)
	}
	return NewProcessor(det, translate.NewService(tr, nil), cls, router, nil)
}

func TestProcess_SpanishFoodBank(t *testing.T) {
	p := newProcessor(t, language.NewDetector(language.Options{Allowed: []string{"en", "es"}}), translate.DefaultGlossary(), nil)
	text := "¿Dónde puedo encontrar un banco de comida cerca de mí?"
	rec := p.Process(context.Background(), text)

	want := &models.QueryRecord{
		Original:   text,
		Language:   "es",
		Translated: "where can I find a food bank near me?",
		Intent:     "food",
		Entities:   []models.Entity{},
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("Process() = %+v\nwant %+v", rec, want)
	}
}

func TestProcess_EnglishPassThrough(t *testing.T) {
	p := newProcessor(t, fixedDetector{language.Result{Code: "en"}}, translate.DefaultGlossary(), nil)
	rec := p.Process(context.Background(), "Help with RENT please")
	if rec.Translated != rec.Original {
		t.Errorf("Translated = %q, want the original", rec.Translated)
	}
	if rec.Intent != "housing" {
		t.Errorf("Intent = %q, want housing", rec.Intent)
	}
}

func TestProcess_Fallbacks(t *testing.T) {
	det := fixedDetector{language.Result{Code: "en", Fallback: true, Err: language.ErrNoLetters}}
	p := newProcessor(t, det, nil, nil)
	rec := p.Process(context.Background(), "12345")
	if rec.Language != "en" || !rec.LanguageFallback {
		t.Errorf("language = %q fallback=%v", rec.Language, rec.LanguageFallback)
	}
	if rec.Intent != models.IntentUnknown {
		t.Errorf("Intent = %q", rec.Intent)
	}

	// Unsupported language: translation falls back to the original text.
	p = newProcessor(t, fixedDetector{language.Result{Code: "fr"}}, translate.DefaultGlossary(), nil)
	rec = p.Process(context.Background(), "une banque alimentaire")
	if rec.Translated != "une banque alimentaire" || !rec.TranslationFallback {
		t.Errorf("Translated = %q fallback=%v", rec.Translated, rec.TranslationFallback)
	}
	if len(rec.Entities) != 0 {
		t.Errorf("fr routes to no model, got %v", rec.Entities)
	}
}

func TestProcess_EntityFailureDegrades(t *testing.T) {
	p := newProcessor(t, fixedDetector{language.Result{Code: "es"}}, translate.DefaultGlossary(), failingExtractor{})
	rec := p.Process(context.Background(), "comida en Houston")
	if !rec.EntityFallback {
		t.Error("EntityFallback should be set")
	}
	if rec.Entities == nil || len(rec.Entities) != 0 {
		t.Errorf("Entities = %#v, want empty non-nil", rec.Entities)
	}
	if rec.Intent != "food" {
		t.Errorf("Intent = %q, want food", rec.Intent)
	}
}

func TestProcess_EntitiesFromOriginal(t *testing.T) {
	p := newProcessor(t, fixedDetector{language.Result{Code: "es"}}, translate.DefaultGlossary(), nil)
	rec := p.Process(context.Background(), "Necesito comida en San Antonio")
	want := []models.Entity{{Text: "San Antonio", Label: entity.LabelLOC}}
	if !reflect.DeepEqual(rec.Entities, want) {
		t.Errorf("Entities = %v, want %v", rec.Entities, want)
	}
	if rec.Translated != "I need food in San Antonio" {
		t.Errorf("Translated = %q", rec.Translated)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	p := newProcessor(t, fixedDetector{language.Result{Code: "es"}}, translate.DefaultGlossary(), nil)
	a := p.Process(context.Background(), "Busco trabajo en Dallas")
	b := p.Process(context.Background(), "Busco trabajo en Dallas")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("records differ: %+v vs %+v", a, b)
	}
}
