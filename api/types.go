// types.go - Request/Response-Typen der quickmt REST-API
// Enthaelt: StatusError, StringList/FloatList (Skalar-oder-Liste),
// TranslateRequest/Response, IdentifyRequest/Response, Model, Health, Version
package api

import (
	"encoding/json"
	"fmt"
)

// Standard-Dekodierparameter der Uebersetzung.
const (
	DefaultBeamSize          = 5
	DefaultPatience          = 1
	DefaultLengthPenalty     = 1.0
	DefaultCoveragePenalty   = 0.0
	DefaultRepetitionPenalty = 1.0
	DefaultMaxDecodingLength = 256
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"detail"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the quickmt server logs for details"
	}
}

// StringList akzeptiert im JSON sowohl einen einzelnen String als auch eine
// Liste von Strings. Scalar merkt sich die Eingabeform, damit Antworten
// dieselbe Form tragen wie die Anfrage.
type StringList struct {
	Values []string
	Scalar bool
}

// Scalar erstellt eine StringList in Skalar-Form.
func Scalar(s string) StringList {
	return StringList{Values: []string{s}, Scalar: true}
}

// List erstellt eine StringList in Listen-Form.
func List(values ...string) StringList {
	return StringList{Values: values}
}

func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		s.Values = []string{single}
		s.Scalar = true
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		s.Values = many
		s.Scalar = false
		return nil
	}

	return fmt.Errorf("expected a string or a list of strings")
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if s.Scalar && len(s.Values) == 1 {
		return json.Marshal(s.Values[0])
	}
	if s.Values == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s.Values)
}

// FloatList ist das float64-Gegenstueck zu StringList.
type FloatList struct {
	Values []float64
	Scalar bool
}

func (f *FloatList) UnmarshalJSON(data []byte) error {
	var single float64
	if err := json.Unmarshal(data, &single); err == nil {
		f.Values = []float64{single}
		f.Scalar = true
		return nil
	}

	var many []float64
	if err := json.Unmarshal(data, &many); err == nil {
		f.Values = many
		f.Scalar = false
		return nil
	}

	return fmt.Errorf("expected a number or a list of numbers")
}

func (f FloatList) MarshalJSON() ([]byte, error) {
	if f.Scalar && len(f.Values) == 1 {
		return json.Marshal(f.Values[0])
	}
	if f.Values == nil {
		return json.Marshal([]float64{})
	}
	return json.Marshal(f.Values)
}

// TranslateRequest ist der Body von POST /api/translate.
// Nicht gesetzte Dekodierparameter erhalten serverseitig die Defaults.
type TranslateRequest struct {
	Src               StringList  `json:"src"`
	SrcLang           *StringList `json:"src_lang,omitempty"`
	TgtLang           string      `json:"tgt_lang,omitempty"`
	BeamSize          *int        `json:"beam_size,omitempty"`
	Patience          *int        `json:"patience,omitempty"`
	LengthPenalty     *float64    `json:"length_penalty,omitempty"`
	CoveragePenalty   *float64    `json:"coverage_penalty,omitempty"`
	RepetitionPenalty *float64    `json:"repetition_penalty,omitempty"`
	MaxDecodingLength *int        `json:"max_decoding_length,omitempty"`
}

// TranslateResponse ist die Antwort von POST /api/translate.
// translation/src_lang/src_lang_score/model_used sind Skalare genau dann,
// wenn src ein Skalar war; tgt_lang ist immer ein Skalar.
type TranslateResponse struct {
	Translation    StringList `json:"translation"`
	SrcLang        StringList `json:"src_lang"`
	SrcLangScore   FloatList  `json:"src_lang_score"`
	TgtLang        string     `json:"tgt_lang"`
	ProcessingTime float64    `json:"processing_time"`
	ModelUsed      StringList `json:"model_used"`
}

// Detection ist ein einzelnes Spracherkennungs-Ergebnis.
type Detection struct {
	Lang  string  `json:"lang"`
	Score float64 `json:"score"`
}

// DetectionResults traegt pro Eingabe die Top-k-Erkennungen.
// Bei skalarer Eingabe wird die Liste flach serialisiert.
type DetectionResults struct {
	Values [][]Detection
	Scalar bool
}

func (d *DetectionResults) UnmarshalJSON(data []byte) error {
	var nested [][]Detection
	if err := json.Unmarshal(data, &nested); err == nil {
		d.Values = nested
		d.Scalar = false
		return nil
	}

	var flat []Detection
	if err := json.Unmarshal(data, &flat); err == nil {
		d.Values = [][]Detection{flat}
		d.Scalar = true
		return nil
	}

	return fmt.Errorf("expected detection results")
}

func (d DetectionResults) MarshalJSON() ([]byte, error) {
	if d.Scalar && len(d.Values) == 1 {
		return json.Marshal(d.Values[0])
	}
	if d.Values == nil {
		return json.Marshal([][]Detection{})
	}
	return json.Marshal(d.Values)
}

// IdentifyRequest ist der Body von POST /api/identify-language.
type IdentifyRequest struct {
	Src       StringList `json:"src"`
	K         int        `json:"k,omitempty"`
	Threshold float64    `json:"threshold,omitempty"`
}

// IdentifyResponse ist die Antwort von POST /api/identify-language.
type IdentifyResponse struct {
	Results        DetectionResults `json:"results"`
	ProcessingTime float64          `json:"processing_time"`
}

// Model beschreibt einen Katalog-Eintrag samt Ladezustand.
type Model struct {
	ModelID string `json:"model_id"`
	SrcLang string `json:"src_lang"`
	TgtLang string `json:"tgt_lang"`
	Loaded  bool   `json:"loaded"`
}

// ModelsResponse ist die Antwort von GET /api/models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// LanguagesResponse bildet Quellsprache auf sortierte Zielsprachen ab.
type LanguagesResponse map[string][]string

// HealthResponse ist die Antwort von GET /api/health.
type HealthResponse struct {
	Status       string   `json:"status"`
	LoadedModels []string `json:"loaded_models"`
	MaxModels    int      `json:"max_models"`
}

// VersionResponse ist die Antwort von GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// ErrorResponse ist der Fehler-Body aller Endpunkte.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
