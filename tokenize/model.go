// Package tokenize - SentencePiece-Subwort-Tokenisierung
//
// Diese Datei enthaelt:
// - PieceType: Typen der Vokabular-Stuecke (Normal, Unknown, Control, Byte)
// - Piece: Ein Vokabular-Eintrag mit Text, Score und Typ
// - parseModel: ModelProto-Parser auf protowire-Basis
//
// SentencePiece-Modelle sind Protobuf-Dateien. Statt den kompletten
// generierten Code mitzuschleppen wird nur das Feld 1 (repeated
// SentencePiece) mit protowire gelesen; alle anderen Felder werden
// uebersprungen.
package tokenize

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// PieceType entspricht ModelProto.SentencePiece.Type.
type PieceType int32

const (
	Normal      PieceType = 1
	Unknown     PieceType = 2
	Control     PieceType = 3
	UserDefined PieceType = 4
	Unused      PieceType = 5
	Byte        PieceType = 6
)

// Piece ist ein Eintrag des SentencePiece-Vokabulars.
type Piece struct {
	Text  string
	Score float64
	Type  PieceType
}

var (
	ErrBadModel = errors.New("sentencepiece-modell konnte nicht gelesen werden")
	ErrNoModel  = errors.New("kein sentencepiece-modell im artefakt gefunden")
)

// parseModel liest die Stuecke aus einem serialisierten ModelProto.
// Feldnummern: 1 = pieces (message), darin 1 = piece (string),
// 2 = score (float), 3 = type (enum, Default Normal).
func parseModel(data []byte) ([]Piece, error) {
	var pieces []Piece

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
			}
			data = data[n:]

			piece, err := parsePiece(raw)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, piece)
			continue
		}

		// TrainerSpec, NormalizerSpec usw. interessieren hier nicht.
		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
		}
		data = data[n:]
	}

	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: keine stuecke", ErrBadModel)
	}
	return pieces, nil
}

func parsePiece(data []byte) (Piece, error) {
	piece := Piece{Type: Normal}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return piece, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return piece, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
			}
			piece.Text = string(v)
			data = data[n:]
		case num == 2 && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return piece, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
			}
			piece.Score = float64(math.Float32frombits(v))
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return piece, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
			}
			piece.Type = PieceType(v)
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return piece, fmt.Errorf("%w: %v", ErrBadModel, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return piece, nil
}
