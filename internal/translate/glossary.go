package translate

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Glossary is an offline phrase-table translator. At each word it applies the
// longest matching source phrase; words with no entry are kept as written.
// Opening ¿ and ¡ are dropped and trailing punctuation stays in place.
type Glossary struct {
	phrases map[string]map[string]string // from -> source phrase -> English
	longest map[string]int               // from -> words in the longest phrase
}

// NewGlossary builds a glossary from per-language phrase tables.
func NewGlossary(tables map[string]map[string]string) *Glossary {
	g := &Glossary{
		phrases: make(map[string]map[string]string),
		longest: make(map[string]int),
	}
	g.Merge(tables)
	return g
}

// DefaultGlossary covers common Spanish help-seeking phrases.
func DefaultGlossary() *Glossary {
	return NewGlossary(map[string]map[string]string{"es": spanish})
}

// LoadGlossary reads a YAML file mapping language codes to phrase tables and
// merges it over the default tables.
func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var tables map[string]map[string]string
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	g := DefaultGlossary()
	g.Merge(tables)
	return g, nil
}

// Merge adds or replaces phrases. Keys are normalized the way input is.
func (g *Glossary) Merge(tables map[string]map[string]string) {
	for lang, table := range tables {
		dst := g.phrases[lang]
		if dst == nil {
			dst = make(map[string]string, len(table))
			g.phrases[lang] = dst
		}
		for src, en := range table {
			words := strings.Fields(foldWord(src))
			if len(words) == 0 {
				continue
			}
			dst[strings.Join(words, " ")] = en
			if len(words) > g.longest[lang] {
				g.longest[lang] = len(words)
			}
		}
	}
}

// Languages lists the source languages with a phrase table.
func (g *Glossary) Languages() []string {
	langs := make([]string, 0, len(g.phrases))
	for lang := range g.phrases {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Translate implements Translator for any language in the glossary into English.
func (g *Glossary) Translate(ctx context.Context, text, from, to string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	table, ok := g.phrases[from]
	if !ok || to != English {
		return "", fmt.Errorf("%w: %s->%s", ErrUnsupported, from, to)
	}

	type token struct{ word, key, tail string }
	var tokens []token
	for _, field := range strings.Fields(norm.NFC.String(text)) {
		field = strings.TrimLeft(field, "¿¡")
		word := strings.TrimRight(field, ".,;:!?")
		if field == "" {
			continue
		}
		tokens = append(tokens, token{word: word, key: foldWord(word), tail: field[len(word):]})
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		matched := false
		for n := min(g.longest[from], len(tokens)-i); n > 0; n-- {
			keys := make([]string, n)
			for j := range keys {
				keys[j] = tokens[i+j].key
			}
			if en, ok := table[strings.Join(keys, " ")]; ok {
				out = append(out, en+tokens[i+n-1].tail)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i].word+tokens[i].tail)
			i++
		}
	}
	return strings.Join(out, " "), nil
}

func foldWord(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

var spanish = map[string]string{
	"dónde puedo encontrar": "where can I find",
	"dónde hay":             "where is there",
	"dónde":                 "where",
	"puedo":                 "can I",
	"encontrar":             "find",
	"necesito":              "I need",
	"busco":                 "I am looking for",
	"estoy buscando":        "I am looking for",
	"ayuda con":             "help with",
	"ayuda":                 "help",
	"un banco de comida":    "a food bank",
	"banco de comida":       "food bank",
	"banco de alimentos":    "food bank",
	"despensa":              "pantry",
	"comida":                "food",
	"comidas":               "meals",
	"alimentos":             "food",
	"hambre":                "hunger",
	"comer":                 "eat",
	"vivienda":              "housing",
	"alquiler":              "rent",
	"renta":                 "rent",
	"refugio":               "shelter",
	"albergue":              "shelter",
	"casa":                  "home",
	"hogar":                 "home",
	"desalojo":              "eviction",
	"trabajo":               "job",
	"empleo":                "employment",
	"carrera":               "career",
	"cerca de mí":           "near me",
	"cerca de":              "near",
	"para":                  "for",
	"mi familia":            "my family",
	"familia":               "family",
	"niños":                 "children",
	"gratis":                "free",
	"un":                    "a",
	"una":                   "a",
	"el":                    "the",
	"la":                    "the",
	"los":                   "the",
	"las":                   "the",
	"de":                    "of",
	"en":                    "in",
	"y":                     "and",
	"por favor":             "please",
}
