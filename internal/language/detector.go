// Package language identifies the language of a user message.
package language

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Default is the code reported when detection cannot decide.
const Default = "en"

var (
	ErrNoLetters     = errors.New("language: text has no letters")
	ErrUndetermined  = errors.New("language: not identified")
	ErrLowConfidence = errors.New("language: confidence below threshold")
)

// Result is the outcome of a detection. Code is always a non-empty ISO-639-1
// code; Fallback is set when Code is Default because detection failed, and
// Err says why.
type Result struct {
	Code       string
	Confidence float64
	Fallback   bool
	Err        error
}

// Detector identifies the language of text.
type Detector interface {
	Detect(text string) Result
}

// Options configures a WhatlangDetector.
type Options struct {
	// MinConfidence below which the detection is discarded in favor of Default.
	MinConfidence float64
	// Allowed restricts candidates to these ISO-639-1 codes. Empty means any.
	Allowed []string
}

// WhatlangDetector detects languages with trigram statistics (whatlanggo).
type WhatlangDetector struct {
	minConfidence float64
	options       whatlanggo.Options
}

// NewDetector returns a whatlanggo-backed detector.
func NewDetector(opts Options) *WhatlangDetector {
	d := &WhatlangDetector{minConfidence: opts.MinConfidence}
	if len(opts.Allowed) > 0 {
		whitelist := make(map[whatlanggo.Lang]bool, len(opts.Allowed))
		for _, code := range opts.Allowed {
			if lang, ok := langFromISO(code); ok {
				whitelist[lang] = true
			}
		}
		if len(whitelist) > 0 {
			d.options.Whitelist = whitelist
		}
	}
	return d
}

// Detect never fails: text without letters, an unknown language, or a
// detection under the confidence threshold yields Default with Fallback set.
func (d *WhatlangDetector) Detect(text string) Result {
	if !hasLetter(text) {
		return fallback(ErrNoLetters)
	}
	info := whatlanggo.DetectWithOptions(text, d.options)
	code := Normalize(info.Lang.Iso6391())
	if code == "" {
		return fallback(ErrUndetermined)
	}
	if info.Confidence < d.minConfidence {
		return Result{
			Code:       Default,
			Confidence: info.Confidence,
			Fallback:   true,
			Err:        fmt.Errorf("%w: %s at %.2f", ErrLowConfidence, code, info.Confidence),
		}
	}
	return Result{Code: code, Confidence: info.Confidence}
}

func fallback(err error) Result {
	return Result{Code: Default, Fallback: true, Err: err}
}

// Normalize maps a language tag such as "ES", "es-MX" or "spa" to its
// ISO-639-1 base code. It returns "" for tags it cannot parse.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

func langFromISO(code string) (whatlanggo.Lang, bool) {
	code = Normalize(code)
	for lang := range whatlanggo.Langs {
		if lang.Iso6391() == code {
			return lang, true
		}
	}
	return 0, false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
