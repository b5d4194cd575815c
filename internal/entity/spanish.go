package entity

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/ayuda/internal/models"
)

// Spanish entity labels.
const (
	LabelLOC  = "LOC"
	LabelORG  = "ORG"
	LabelMISC = "MISC"
)

// SpanishExtractor recognizes runs of capitalized words, allowing lowercase
// connectors (de, del, la, ...) between them. A span is ORG when it starts
// with an organization noun, LOC when it follows a locative preposition and
// MISC otherwise. Capitalized function words opening a sentence are skipped,
// as is any single-word span at the start of a sentence.
type SpanishExtractor struct{}

func NewSpanishExtractor() *SpanishExtractor {
	return &SpanishExtractor{}
}

type word struct {
	text          string
	sentenceStart bool
}

// Extract implements Extractor.
func (s *SpanishExtractor) Extract(ctx context.Context, text string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := splitWords(text)
	var ents []models.Entity
	for i := 0; i < len(words); {
		if !capitalized(words[i].text) || (words[i].sentenceStart && sentenceOpeners[strings.ToLower(words[i].text)]) {
			i++
			continue
		}
		end := i + 1
		for end < len(words) {
			if capitalized(words[end].text) && !words[end].sentenceStart {
				end++
				continue
			}
			// Connector followed by another capitalized word extends the span.
			if connectors[words[end].text] && end+1 < len(words) && capitalized(words[end+1].text) && !words[end+1].sentenceStart {
				end += 2
				continue
			}
			break
		}
		if words[i].sentenceStart && end-i == 1 {
			i = end
			continue
		}
		parts := make([]string, 0, end-i)
		for _, w := range words[i:end] {
			parts = append(parts, w.text)
		}
		prev := ""
		if i > 0 && !words[i].sentenceStart {
			prev = strings.ToLower(words[i-1].text)
		}
		ents = append(ents, models.Entity{Text: strings.Join(parts, " "), Label: label(parts[0], prev)})
		i = end
	}
	return ents, nil
}

func label(first, prev string) string {
	if orgNouns[strings.ToLower(first)] {
		return LabelORG
	}
	if locatives[prev] {
		return LabelLOC
	}
	return LabelMISC
}

// splitWords returns letter/digit runs, marking those that open a sentence.
func splitWords(text string) []word {
	var words []word
	var b strings.Builder
	start := true
	flush := func() {
		if b.Len() > 0 {
			words = append(words, word{text: b.String(), sentenceStart: start})
			start = false
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
		default:
			flush()
			if strings.ContainsRune(".?!¿¡\n", r) {
				start = true
			}
		}
	}
	flush()
	return words
}

func capitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

var connectors = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true, "y": true,
}

var locatives = map[string]bool{
	"en": true, "de": true, "del": true, "desde": true, "hacia": true, "a": true, "al": true, "cerca": true,
}

var orgNouns = map[string]bool{
	"banco": true, "fundación": true, "asociación": true, "centro": true, "iglesia": true,
	"cruz": true, "hospital": true, "clínica": true, "universidad": true, "cáritas": true,
	"ejército": true, "comité": true, "instituto": true, "organización": true,
}

var sentenceOpeners = map[string]bool{
	"dónde": true, "donde": true, "qué": true, "que": true, "cómo": true, "como": true,
	"cuándo": true, "cuál": true, "quién": true, "hay": true, "hola": true, "necesito": true,
	"busco": true, "quiero": true, "tengo": true, "estoy": true, "puedo": true, "me": true,
	"mi": true, "yo": true, "el": true, "la": true, "los": true, "las": true, "un": true,
	"una": true, "por": true, "para": true, "ayuda": true, "ayúdame": true, "gracias": true,
	"en": true, "es": true, "soy": true, "somos": true, "nosotros": true, "mis": true,
}
