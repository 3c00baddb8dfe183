package kokoro

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-voice/internal/apperr"
)

func TestResolveBaseOnly(t *testing.T) {
	p := Resolve("/models/kokoro", false)
	want := ResourcePaths{
		Model:   "/models/kokoro/model.onnx",
		Voices:  "/models/kokoro/voices.bin",
		Tokens:  "/models/kokoro/tokens.txt",
		DataDir: "/models/kokoro/espeak-ng-data",
		DictDir: "/models/kokoro/dict",
		Lexicon: "/models/kokoro/lexicon-us-en.txt",
	}
	if p != want {
		t.Fatalf("unexpected paths:\n got %+v\nwant %+v", p, want)
	}
	if got := p.Lexicons(); len(got) != 1 {
		t.Fatalf("expected exactly one lexicon, got %v", got)
	}
}

func TestResolveWithAuxiliaryLexicon(t *testing.T) {
	p := Resolve("./m", true)
	if p.Lexicon != "./m/lexicon-us-en.txt,./m/lexicon-zh.txt" {
		t.Fatalf("unexpected lexicon list %q", p.Lexicon)
	}
	lex := p.Lexicons()
	if len(lex) != 2 {
		t.Fatalf("expected two lexicons, got %v", lex)
	}
	if lex[0] != "./m/lexicon-us-en.txt" || lex[1] != "./m/lexicon-zh.txt" {
		t.Fatalf("primary lexicon must come first, got %v", lex)
	}
}

func TestResolveDoesNotTouchFilesystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	p := Resolve(dir, true)
	if p.Model != dir+"/model.onnx" {
		t.Fatalf("unexpected model path %q", p.Model)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("resolve must not create the model dir")
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{ModelDir: "m", Speed: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]Request{
		"negative sid": {ModelDir: "m", SpeakerID: -1, Speed: 1},
		"zero speed":   {ModelDir: "m", Speed: 0},
		"nan speed":    {ModelDir: "m", Speed: math.NaN()},
		"inf speed":    {ModelDir: "m", Speed: math.Inf(1)},
		"debug 2":      {ModelDir: "m", Speed: 1, Debug: 2},
		"no model dir": {Speed: 1},
	}
	for name, req := range cases {
		err := req.Validate()
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if apperr.KindOf(err) != apperr.KindArgument {
			t.Errorf("%s: expected argument error, got %v", name, err)
		}
	}
}

func TestRequestPathsFollowLexiconMode(t *testing.T) {
	req := Request{ModelDir: "m", Speed: 1, Lexicon: LexiconModeFor(true)}
	if n := len(req.Paths().Lexicons()); n != 2 {
		t.Fatalf("expected two lexicons, got %d", n)
	}
	if req.Lexicon.String() != "us-en + zh" {
		t.Fatalf("unexpected mode label %q", req.Lexicon)
	}
	if LexiconModeFor(false).String() != "us-en only" {
		t.Fatalf("unexpected base mode label")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := LoadManifest(dir); err != nil || ok {
		t.Fatalf("expected no manifest, got ok=%v err=%v", ok, err)
	}

	yaml := "name: kokoro-multi-lang-v1_1\nsample_rate: 24000\nnum_speakers: 103\nlanguages: [en, zh]\n"
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	m, ok, err := LoadManifest(dir)
	if err != nil || !ok {
		t.Fatalf("load manifest: ok=%v err=%v", ok, err)
	}
	if m.SampleRate != 24000 || m.NumSpeakers != 103 || len(m.Languages) != 2 {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if err := m.CheckSpeaker(102); err != nil {
		t.Fatalf("speaker 102 should be valid: %v", err)
	}
	if err := m.CheckSpeaker(103); apperr.KindOf(err) != apperr.KindArgument {
		t.Fatalf("expected argument error for speaker 103, got %v", err)
	}
}

func TestLoadManifestInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("num_speakers: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadManifest(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
