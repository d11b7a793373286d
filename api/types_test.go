// types_test.go - Tests fuer die flexiblen Skalar-oder-Liste-Typen
package api

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStringListUnmarshal(t *testing.T) {
	cases := []struct {
		name   string
		data   string
		expect StringList
		fail   bool
	}{
		{name: "scalar", data: `"Bonjour"`, expect: StringList{Values: []string{"Bonjour"}, Scalar: true}},
		{name: "list", data: `["Bonjour","Hola"]`, expect: StringList{Values: []string{"Bonjour", "Hola"}}},
		{name: "empty list", data: `[]`, expect: StringList{Values: []string{}}},
		{name: "number", data: `123`, fail: true},
		{name: "mixed list", data: `["a",1]`, fail: true},
		{name: "object", data: `{"a":1}`, fail: true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.fail {
				if err == nil {
					t.Fatalf("%s: Fehler erwartet, keiner erhalten", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s: unerwarteter Fehler: %v", tt.name, err)
			}
			if diff := cmp.Diff(tt.expect, got); diff != "" {
				t.Errorf("%s: unerwartetes Ergebnis (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestStringListMarshalShape(t *testing.T) {
	cases := []struct {
		name   string
		value  StringList
		expect string
	}{
		{name: "scalar bleibt skalar", value: Scalar("Hallo"), expect: `"Hallo"`},
		{name: "liste bleibt liste", value: List("a", "b"), expect: `["a","b"]`},
		{name: "einelementige liste", value: List("a"), expect: `["a"]`},
		{name: "nil wird leere liste", value: StringList{}, expect: `[]`},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.expect {
				t.Errorf("%s: erwartet %s, erhalten %s", tt.name, tt.expect, data)
			}
		})
	}
}

func TestTranslateRequestRoundTrip(t *testing.T) {
	body := `{"src":["a","b"],"src_lang":["en","fr"],"tgt_lang":"de","beam_size":2}`

	var req TranslateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}

	if req.Src.Scalar {
		t.Error("src: Listen-Form erwartet")
	}
	if req.SrcLang == nil || len(req.SrcLang.Values) != 2 {
		t.Fatalf("src_lang: zwei Werte erwartet, erhalten %v", req.SrcLang)
	}
	if req.TgtLang != "de" {
		t.Errorf("tgt_lang: erwartet de, erhalten %s", req.TgtLang)
	}
	if req.BeamSize == nil || *req.BeamSize != 2 {
		t.Errorf("beam_size: erwartet 2, erhalten %v", req.BeamSize)
	}
	if req.Patience != nil {
		t.Errorf("patience: nicht gesetzt erwartet, erhalten %v", *req.Patience)
	}
}

func TestDetectionResultsShape(t *testing.T) {
	scalar := DetectionResults{Values: [][]Detection{{{Lang: "en", Score: 0.98}}}, Scalar: true}
	data, err := json.Marshal(scalar)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"lang":"en","score":0.98}]` {
		t.Errorf("skalare Form: flache Liste erwartet, erhalten %s", data)
	}

	nested := DetectionResults{Values: [][]Detection{{{Lang: "fr", Score: 0.9}}, {{Lang: "es", Score: 0.8}}}}
	data, err = json.Marshal(nested)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[[{"lang":"fr","score":0.9}],[{"lang":"es","score":0.8}]]` {
		t.Errorf("Listen-Form: verschachtelte Liste erwartet, erhalten %s", data)
	}

	var back DetectionResults
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Scalar || len(back.Values) != 2 {
		t.Errorf("Unmarshal: zwei verschachtelte Ergebnisse erwartet, erhalten %+v", back)
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError{StatusCode: 404, Status: "404 Not Found", ErrorMessage: "Translation model 'en-zz' not found"}
	if got := err.Error(); got != "404 Not Found: Translation model 'en-zz' not found" {
		t.Errorf("unerwartete Fehlermeldung: %s", got)
	}
}
