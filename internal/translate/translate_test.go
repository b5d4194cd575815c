package translate

import (
	"context"
	"errors"
	"testing"
)

type stubTranslator struct {
	out   string
	err   error
	calls int
}

func (s *stubTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestService_ToEnglish(t *testing.T) {
	errDown := errors.New("down")
	tests := []struct {
		name         string
		translator   Translator
		lang         string
		wantText     string
		wantFallback bool
		wantErr      error
	}{
		{"english passes through", &stubTranslator{out: "ignored"}, "en", "hola amigos", false, nil},
		{"translated", &stubTranslator{out: "hello friends"}, "es", "hello friends", false, nil},
		{"translator error", &stubTranslator{err: errDown}, "es", "hola amigos", true, errDown},
		{"empty output", &stubTranslator{out: "  "}, "es", "hola amigos", true, ErrEmptyTranslation},
		{"no translator", nil, "es", "hola amigos", true, ErrNoTranslator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.translator, nil)
			got := s.ToEnglish(context.Background(), "hola amigos", tt.lang)
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Fallback != tt.wantFallback {
				t.Errorf("Fallback = %v, want %v", got.Fallback, tt.wantFallback)
			}
			if tt.wantErr != nil && !errors.Is(got.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", got.Err, tt.wantErr)
			}
			if tt.wantErr == nil && got.Err != nil {
				t.Errorf("unexpected Err %v", got.Err)
			}
		})
	}
}

func TestService_EnglishSkipsTranslator(t *testing.T) {
	stub := &stubTranslator{out: "x"}
	NewService(stub, nil).ToEnglish(context.Background(), "hello", "en")
	if stub.calls != 0 {
		t.Errorf("translator called %d times for English input", stub.calls)
	}
}
