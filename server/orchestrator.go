// orchestrator.go - Ausfuehrung einer Uebersetzungs- bzw. Erkennungsanfrage
// Enthaelt:
// - Translate: Parameter-Validierung, Sprachaufloesung, Gruppierung nach
//   Quellsprache, paralleler Fan-out, indextreuer Zusammenbau
// - Identify: Spracherkennung ueber den Worker-Pool
//
// Antworten tragen dieselbe Form wie die Anfrage: Skalar rein, Skalar
// raus; Liste rein, Liste raus. tgt_lang ist immer ein Skalar.

package server

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/engine"
	"github.com/quickmt/quickmt/langid"
)

const (
	// defaultTgtLang gilt, wenn die Anfrage keine Zielsprache nennt.
	defaultTgtLang = "en"

	// identityModel kennzeichnet Eintraege, deren Quellsprache bereits
	// die Zielsprache ist; noneModel leere Anfragen.
	identityModel = "identity"
	noneModel     = "none"
)

// Translate fuehrt eine vollstaendige Uebersetzungsanfrage aus.
func (s *Server) Translate(ctx context.Context, req *api.TranslateRequest) (*api.TranslateResponse, error) {
	if s.manager == nil {
		return nil, errManagerNotReady
	}

	start := time.Now()

	tgt := req.TgtLang
	if tgt == "" {
		tgt = defaultTgtLang
	}
	opts, err := decodingOptions(req)
	if err != nil {
		return nil, err
	}

	texts := req.Src.Values
	scalar := req.Src.Scalar

	// Leere Anfragen beantworten sich formgleich selbst, ohne Modell
	// und ohne Spracherkennung.
	if len(texts) == 0 || (scalar && texts[0] == "") {
		resp := &api.TranslateResponse{
			TgtLang:   tgt,
			ModelUsed: api.Scalar(noneModel),
		}
		if scalar {
			resp.Translation = api.Scalar("")
			resp.SrcLang = api.Scalar("")
			resp.SrcLangScore = api.FloatList{Values: []float64{0}, Scalar: true}
		} else {
			resp.Translation = api.List()
			resp.SrcLang = api.List()
			resp.SrcLangScore = api.FloatList{}
		}
		resp.ProcessingTime = time.Since(start).Seconds()
		return resp, nil
	}

	srcLangs, scores, err := s.resolveSourceLangs(ctx, req, texts)
	if err != nil {
		return nil, err
	}

	// Indizes nach Quellsprache gruppieren; jede Gruppe teilt sich
	// einen Runner und damit dessen Batches.
	groups := map[string][]int{}
	for i, lang := range srcLangs {
		groups[lang] = append(groups[lang], i)
	}

	translations := make([]string, len(texts))
	models := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	for lang, indices := range groups {
		if lang == tgt {
			for _, idx := range indices {
				translations[idx] = texts[idx]
				models[idx] = identityModel
			}
			continue
		}

		g.Go(func() error {
			runner, err := s.manager.Get(gctx, lang, tgt)
			if err != nil {
				return err
			}

			ig, igctx := errgroup.WithContext(gctx)
			for _, idx := range indices {
				ig.Go(func() error {
					out, err := s.translateOne(igctx, runner, lang, tgt, texts[idx], opts)
					if err != nil {
						return err
					}
					translations[idx] = out
					models[idx] = runner.desc.ID
					return nil
				})
			}
			return ig.Wait()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &api.TranslateResponse{
		Translation:    api.StringList{Values: translations, Scalar: scalar},
		SrcLang:        api.StringList{Values: srcLangs, Scalar: scalar},
		SrcLangScore:   api.FloatList{Values: scores, Scalar: scalar},
		TgtLang:        tgt,
		ModelUsed:      api.StringList{Values: models, Scalar: scalar},
		ProcessingTime: time.Since(start).Seconds(),
	}
	s.metrics.TranslateDuration.Record(ctx, resp.ProcessingTime)
	return resp, nil
}

// translateOne schickt einen Text durch den Runner und wiederholt genau
// einmal, falls der Runner zwischenzeitlich verdraengt wurde: der
// Manager laedt das Paar dann neu.
func (s *Server) translateOne(ctx context.Context, runner *modelRunner, src, tgt, text string, opts engine.Options) (string, error) {
	out, err := runner.Translate(ctx, text, opts)
	if err == nil || !errors.Is(err, ErrRunnerClosed) {
		return out, err
	}
	runner, err = s.manager.Get(ctx, src, tgt)
	if err != nil {
		return "", err
	}
	return runner.Translate(ctx, text, opts)
}

// resolveSourceLangs bestimmt pro Eintrag Quellsprache und Konfidenz:
// explizit angegeben (Skalar gilt fuer alle, Liste muss laengengleich
// sein; Score 1.0) oder per Spracherkennung.
func (s *Server) resolveSourceLangs(ctx context.Context, req *api.TranslateRequest, texts []string) ([]string, []float64, error) {
	n := len(texts)

	// Ein leerer src_lang (leere Liste oder leerer String) zaehlt als
	// nicht angegeben.
	given := req.SrcLang != nil && len(req.SrcLang.Values) > 0 &&
		!(req.SrcLang.Scalar && req.SrcLang.Values[0] == "")

	if given {
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = 1.0
		}
		if req.SrcLang.Scalar {
			langs := make([]string, n)
			for i := range langs {
				langs[i] = req.SrcLang.Values[0]
			}
			return langs, scores, nil
		}
		if len(req.SrcLang.Values) != n {
			return nil, nil, badRequestf("src_lang list length must match src list length")
		}
		return req.SrcLang.Values, scores, nil
	}

	if s.pool == nil {
		return nil, nil, errLangIDNotReady
	}

	detections, err := s.pool.Classify(ctx, texts, 1, 0)
	if err != nil {
		return nil, nil, err
	}

	langs := make([]string, n)
	scores := make([]float64, n)
	for i, det := range detections {
		if len(det) == 0 {
			langs[i] = langid.UnknownLang
			continue
		}
		langs[i] = det[0].Lang
		scores[i] = det[0].Score
	}
	return langs, scores, nil
}

// decodingOptions ergaenzt Defaults und validiert die Parameterbereiche.
func decodingOptions(req *api.TranslateRequest) (engine.Options, error) {
	opts := engine.Options{
		BeamSize:          api.DefaultBeamSize,
		Patience:          api.DefaultPatience,
		LengthPenalty:     api.DefaultLengthPenalty,
		CoveragePenalty:   api.DefaultCoveragePenalty,
		RepetitionPenalty: api.DefaultRepetitionPenalty,
		MaxDecodingLength: api.DefaultMaxDecodingLength,
	}
	if req.BeamSize != nil {
		opts.BeamSize = *req.BeamSize
	}
	if req.Patience != nil {
		opts.Patience = *req.Patience
	}
	if req.LengthPenalty != nil {
		opts.LengthPenalty = *req.LengthPenalty
	}
	if req.CoveragePenalty != nil {
		opts.CoveragePenalty = *req.CoveragePenalty
	}
	if req.RepetitionPenalty != nil {
		opts.RepetitionPenalty = *req.RepetitionPenalty
	}
	if req.MaxDecodingLength != nil {
		opts.MaxDecodingLength = *req.MaxDecodingLength
	}

	switch {
	case opts.BeamSize < 1:
		return engine.Options{}, badRequestf("beam_size must be at least 1")
	case opts.Patience < 1:
		return engine.Options{}, badRequestf("patience must be at least 1")
	case opts.Patience > opts.BeamSize:
		return engine.Options{}, badRequestf("patience cannot be greater than beam_size")
	case opts.RepetitionPenalty <= 0:
		return engine.Options{}, badRequestf("repetition_penalty must be greater than 0")
	case opts.MaxDecodingLength < 1:
		return engine.Options{}, badRequestf("max_decoding_length must be at least 1")
	}
	return opts, nil
}

// Identify bestimmt die Sprache der Eingaben ueber den Worker-Pool.
func (s *Server) Identify(ctx context.Context, req *api.IdentifyRequest) (*api.IdentifyResponse, error) {
	if s.pool == nil {
		return nil, errLangIDNotReady
	}

	start := time.Now()
	k := req.K
	if k <= 0 {
		k = 1
	}

	results, err := s.pool.Classify(ctx, req.Src.Values, k, req.Threshold)
	if err != nil {
		return nil, err
	}

	values := make([][]api.Detection, len(results))
	for i, dets := range results {
		values[i] = make([]api.Detection, len(dets))
		for j, d := range dets {
			values[i][j] = api.Detection{Lang: d.Lang, Score: d.Score}
		}
	}

	resp := &api.IdentifyResponse{
		Results:        api.DetectionResults{Values: values, Scalar: req.Src.Scalar},
		ProcessingTime: time.Since(start).Seconds(),
	}
	s.metrics.IdentifyDuration.Record(ctx, resp.ProcessingTime)
	return resp, nil
}
