// Package kokoro describes the on-disk layout of a Kokoro multi-lingual model
// directory and the per-run synthesis request.
package kokoro

import "strings"

const (
	ModelFile            = "model.onnx"
	VoicesFile           = "voices.bin"
	TokensFile           = "tokens.txt"
	DataDirName          = "espeak-ng-data"
	DictDirName          = "dict"
	PrimaryLexiconFile   = "lexicon-us-en.txt"
	AuxiliaryLexiconFile = "lexicon-zh.txt"

	lexiconSeparator = ","
)

// ResourcePaths are the engine inputs derived from a model directory.
type ResourcePaths struct {
	Model   string
	Voices  string
	Tokens  string
	DataDir string
	DictDir string
	// Lexicon is a comma separated list. The engine consults the entries in
	// order and the first match wins, so the primary lexicon comes first.
	Lexicon string
}

// Resolve derives the resource paths under modelDir. It never touches the
// filesystem; missing files surface when the engine is created.
func Resolve(modelDir string, includeAuxiliaryLexicon bool) ResourcePaths {
	under := func(name string) string { return modelDir + "/" + name }

	lexicons := []string{under(PrimaryLexiconFile)}
	if includeAuxiliaryLexicon {
		lexicons = append(lexicons, under(AuxiliaryLexiconFile))
	}

	return ResourcePaths{
		Model:   under(ModelFile),
		Voices:  under(VoicesFile),
		Tokens:  under(TokensFile),
		DataDir: under(DataDirName),
		DictDir: under(DictDirName),
		Lexicon: strings.Join(lexicons, lexiconSeparator),
	}
}

// Lexicons returns the lexicon files in priority order.
func (p ResourcePaths) Lexicons() []string {
	if p.Lexicon == "" {
		return nil
	}
	return strings.Split(p.Lexicon, lexiconSeparator)
}
