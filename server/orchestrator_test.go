// orchestrator_test.go - Tests fuer Fan-out, Formtreue und Validierung
package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/langid"
	"github.com/quickmt/quickmt/observe"
	"github.com/quickmt/quickmt/registry"
)

// prefixClassifier erkennt die Sprache am ersten Buchstaben:
// f -> fr, d -> de, sonst en.
type prefixClassifier struct{}

func (prefixClassifier) Classify(texts []string, k int, threshold float64) ([][]langid.Detection, error) {
	out := make([][]langid.Detection, len(texts))
	for i, t := range texts {
		switch {
		case t == "":
			out[i] = nil
		case t[0] == 'f':
			out[i] = []langid.Detection{{Lang: "fr", Score: 0.9}}
		case t[0] == 'd':
			out[i] = []langid.Detection{{Lang: "de", Score: 0.85}}
		default:
			out[i] = []langid.Detection{{Lang: "en", Score: 0.8}}
		}
	}
	return out, nil
}

func newTestPool(t *testing.T) *langid.Pool {
	t.Helper()
	p, err := langid.NewPool(1, func() (langid.Classifier, error) { return prefixClassifier{}, nil })
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func newTestServer(t *testing.T, cat Catalogue, pool *langid.Pool) (*Server, *engineFactory) {
	t.Helper()
	ef := newEngineFactory()
	s := &Server{
		manager: newTestManager(t, cat, ef),
		pool:    pool,
		metrics: observe.DefaultMetrics(),
	}
	return s, ef
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func TestTranslateScalar(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), newTestPool(t))

	resp, err := s.Translate(context.Background(), &api.TranslateRequest{Src: api.Scalar("fromage")})
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	if !resp.Translation.Scalar || resp.Translation.Values[0] != "FROMAGE" {
		t.Errorf("Translation: erwartet Skalar %q, erhalten %+v", "FROMAGE", resp.Translation)
	}
	if !resp.SrcLang.Scalar || resp.SrcLang.Values[0] != "fr" {
		t.Errorf("SrcLang: erwartet Skalar %q, erhalten %+v", "fr", resp.SrcLang)
	}
	if !resp.SrcLangScore.Scalar || resp.SrcLangScore.Values[0] != 0.9 {
		t.Errorf("SrcLangScore: erwartet Skalar 0.9, erhalten %+v", resp.SrcLangScore)
	}
	if resp.TgtLang != "en" {
		t.Errorf("TgtLang: erwartet %q, erhalten %q", "en", resp.TgtLang)
	}
	if !resp.ModelUsed.Scalar || resp.ModelUsed.Values[0] != "quickmt/quickmt-fr-en" {
		t.Errorf("ModelUsed: erwartet Skalar %q, erhalten %+v", "quickmt/quickmt-fr-en", resp.ModelUsed)
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("ProcessingTime negativ: %v", resp.ProcessingTime)
	}
}

func TestTranslateListMixedLanguages(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en", "de-en"), newTestPool(t))

	req := &api.TranslateRequest{Src: api.List("fromage", "frites", "hello there", "danke schoen")}
	resp, err := s.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	if resp.Translation.Scalar {
		t.Error("Listenanfrage lieferte skalare Antwort")
	}
	wantTexts := []string{"FROMAGE", "FRITES", "hello there", "DANKE SCHOEN"}
	if diff := cmp.Diff(wantTexts, resp.Translation.Values); diff != "" {
		t.Errorf("Translation (-want +got):\n%s", diff)
	}
	wantLangs := []string{"fr", "fr", "en", "de"}
	if diff := cmp.Diff(wantLangs, resp.SrcLang.Values); diff != "" {
		t.Errorf("SrcLang (-want +got):\n%s", diff)
	}
	wantModels := []string{
		"quickmt/quickmt-fr-en",
		"quickmt/quickmt-fr-en",
		"identity",
		"quickmt/quickmt-de-en",
	}
	if diff := cmp.Diff(wantModels, resp.ModelUsed.Values); diff != "" {
		t.Errorf("ModelUsed (-want +got):\n%s", diff)
	}
}

func TestTranslateExplicitSrcLang(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	srcLang := api.Scalar("fr")
	req := &api.TranslateRequest{
		Src:     api.List("un texte", "deuxieme"),
		SrcLang: &srcLang,
	}
	resp, err := s.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	// Explizite Angabe gilt fuer alle Eintraege mit Score 1.0, ohne
	// dass der Erkennungs-Pool gebraucht wird.
	if diff := cmp.Diff([]string{"fr", "fr"}, resp.SrcLang.Values); diff != "" {
		t.Errorf("SrcLang (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 1}, resp.SrcLangScore.Values); diff != "" {
		t.Errorf("SrcLangScore (-want +got):\n%s", diff)
	}
}

func TestTranslateScalarSrcWithSingleItemLangList(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	srcLang := api.List("fr")
	req := &api.TranslateRequest{Src: api.Scalar("fromage"), SrcLang: &srcLang}
	resp, err := s.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if !resp.Translation.Scalar || resp.Translation.Values[0] != "FROMAGE" {
		t.Errorf("Translation: erwartet Skalar %q, erhalten %+v", "FROMAGE", resp.Translation)
	}
}

func TestTranslateSrcLangLengthMismatch(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	srcLang := api.List("fr")
	req := &api.TranslateRequest{
		Src:     api.List("un", "deux"),
		SrcLang: &srcLang,
	}
	_, err := s.Translate(context.Background(), req)
	if !errors.Is(err, errBadRequest) {
		t.Fatalf("erwartet Validierungsfehler, erhalten %v", err)
	}
	want := "src_lang list length must match src list length"
	if err.Error() != want {
		t.Errorf("Fehlertext: erwartet %q, erhalten %q", want, err.Error())
	}
}

func TestTranslateEmptyScalar(t *testing.T) {
	// nil-Pool: die leere Anfrage darf weder Modell noch Erkennung anfassen
	s, ef := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	resp, err := s.Translate(context.Background(), &api.TranslateRequest{Src: api.Scalar("")})
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	if !resp.Translation.Scalar || resp.Translation.Values[0] != "" {
		t.Errorf("Translation: erwartet leeren Skalar, erhalten %+v", resp.Translation)
	}
	if !resp.SrcLang.Scalar || resp.SrcLang.Values[0] != "" {
		t.Errorf("SrcLang: erwartet leeren Skalar, erhalten %+v", resp.SrcLang)
	}
	if !resp.SrcLangScore.Scalar || resp.SrcLangScore.Values[0] != 0 {
		t.Errorf("SrcLangScore: erwartet skalare 0, erhalten %+v", resp.SrcLangScore)
	}
	if !resp.ModelUsed.Scalar || resp.ModelUsed.Values[0] != "none" {
		t.Errorf("ModelUsed: erwartet %q, erhalten %+v", "none", resp.ModelUsed)
	}
	if got := ef.builtCount(); got != 0 {
		t.Errorf("Engine-Konstruktionen: erwartet 0, erhalten %d", got)
	}
}

func TestTranslateEmptyList(t *testing.T) {
	s, ef := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	resp, err := s.Translate(context.Background(), &api.TranslateRequest{Src: api.List()})
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	if resp.Translation.Scalar || len(resp.Translation.Values) != 0 {
		t.Errorf("Translation: erwartet leere Liste, erhalten %+v", resp.Translation)
	}
	if resp.SrcLang.Scalar || len(resp.SrcLang.Values) != 0 {
		t.Errorf("SrcLang: erwartet leere Liste, erhalten %+v", resp.SrcLang)
	}
	// model_used bleibt auch bei leerer Liste der Skalar "none"
	if !resp.ModelUsed.Scalar || resp.ModelUsed.Values[0] != "none" {
		t.Errorf("ModelUsed: erwartet Skalar %q, erhalten %+v", "none", resp.ModelUsed)
	}
	if got := ef.builtCount(); got != 0 {
		t.Errorf("Engine-Konstruktionen: erwartet 0, erhalten %d", got)
	}
}

func TestTranslateUnknownPair(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), newTestPool(t))

	req := &api.TranslateRequest{Src: api.Scalar("fromage"), TgtLang: "ja"}
	_, err := s.Translate(context.Background(), req)
	if !errors.Is(err, registry.ErrModelNotFound) {
		t.Fatalf("erwartet ErrModelNotFound, erhalten %v", err)
	}
}

func TestTranslateParameterValidation(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	cases := []struct {
		name string
		req  api.TranslateRequest
		want string
	}{
		{
			name: "beam_size null",
			req:  api.TranslateRequest{Src: api.Scalar("x"), BeamSize: intPtr(0)},
			want: "beam_size must be at least 1",
		},
		{
			name: "patience null",
			req:  api.TranslateRequest{Src: api.Scalar("x"), Patience: intPtr(0)},
			want: "patience must be at least 1",
		},
		{
			name: "patience groesser beam_size",
			req:  api.TranslateRequest{Src: api.Scalar("x"), BeamSize: intPtr(2), Patience: intPtr(3)},
			want: "patience cannot be greater than beam_size",
		},
		{
			name: "repetition_penalty null",
			req:  api.TranslateRequest{Src: api.Scalar("x"), RepetitionPenalty: floatPtr(0)},
			want: "repetition_penalty must be greater than 0",
		},
		{
			name: "max_decoding_length null",
			req:  api.TranslateRequest{Src: api.Scalar("x"), MaxDecodingLength: intPtr(0)},
			want: "max_decoding_length must be at least 1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Translate(context.Background(), &tc.req)
			if !errors.Is(err, errBadRequest) {
				t.Fatalf("erwartet Validierungsfehler, erhalten %v", err)
			}
			if err.Error() != tc.want {
				t.Errorf("Fehlertext: erwartet %q, erhalten %q", tc.want, err.Error())
			}
		})
	}
}

func TestTranslateNilManager(t *testing.T) {
	s := &Server{metrics: observe.DefaultMetrics()}

	_, err := s.Translate(context.Background(), &api.TranslateRequest{Src: api.Scalar("fromage")})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("erwartet ErrNotReady, erhalten %v", err)
	}
	if err.Error() != "Model manager not initialized" {
		t.Errorf("Fehlertext: erhalten %q", err.Error())
	}
}

func TestTranslateNilPool(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), nil)

	_, err := s.Translate(context.Background(), &api.TranslateRequest{Src: api.Scalar("fromage")})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("erwartet ErrNotReady, erhalten %v", err)
	}
	if err.Error() != "Language identification not initialized" {
		t.Errorf("Fehlertext: erhalten %q", err.Error())
	}
}

func TestIdentifyScalar(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), newTestPool(t))

	resp, err := s.Identify(context.Background(), &api.IdentifyRequest{Src: api.Scalar("fromage")})
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	want := api.DetectionResults{
		Values: [][]api.Detection{{{Lang: "fr", Score: 0.9}}},
		Scalar: true,
	}
	if diff := cmp.Diff(want, resp.Results); diff != "" {
		t.Errorf("Results (-want +got):\n%s", diff)
	}
}

func TestIdentifyList(t *testing.T) {
	s, _ := newTestServer(t, newFakeCatalogue("fr-en"), newTestPool(t))

	resp, err := s.Identify(context.Background(), &api.IdentifyRequest{Src: api.List("fromage", "hello")})
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if resp.Results.Scalar {
		t.Error("Listenanfrage lieferte skalare Ergebnisse")
	}
	if len(resp.Results.Values) != 2 {
		t.Fatalf("Ergebnisse: erwartet 2, erhalten %d", len(resp.Results.Values))
	}
	if resp.Results.Values[1][0].Lang != "en" {
		t.Errorf("zweites Ergebnis: erwartet en, erhalten %+v", resp.Results.Values[1])
	}
}

func TestIdentifyNilPool(t *testing.T) {
	s := &Server{metrics: observe.DefaultMetrics()}

	_, err := s.Identify(context.Background(), &api.IdentifyRequest{Src: api.Scalar("fromage")})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("erwartet ErrNotReady, erhalten %v", err)
	}
	if err.Error() != "Language identification not initialized" {
		t.Errorf("Fehlertext: erhalten %q", err.Error())
	}
}
