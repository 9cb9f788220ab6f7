package run

import (
	"testing"

	"jtpadensity/domain/core"
)

func testSettings() Settings {
	return Settings{
		Seed: 42, BWSelect: "imse-dpi", Kernel: "triangular", PolyOrder: 2,
		GridMin: 2, GridMax: 5, GridPoints: 10, CILevel: 95, CIReps: 2000, Uniform: true,
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	input := core.NewHash([]byte("jtpa"))

	fp1 := Fingerprint(input, testSettings(), CodeVersion)
	fp2 := Fingerprint(input, testSettings(), CodeVersion)

	if fp1 != fp2 {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1, fp2)
	}
}

func TestFingerprint_Unique(t *testing.T) {
	input := core.NewHash([]byte("jtpa"))
	base := Fingerprint(input, testSettings(), CodeVersion)

	variants := map[string]func(s *Settings){
		"seed":    func(s *Settings) { s.Seed = 43 },
		"rule":    func(s *Settings) { s.BWSelect = "imse-rot" },
		"grid":    func(s *Settings) { s.GridPoints = 11 },
		"uniform": func(s *Settings) { s.Uniform = false },
	}
	for name, mutate := range variants {
		s := testSettings()
		mutate(&s)
		if Fingerprint(input, s, CodeVersion) == base {
			t.Errorf("changing %s did not change the fingerprint", name)
		}
	}

	if Fingerprint(core.NewHash([]byte("other")), testSettings(), CodeVersion) == base {
		t.Error("changing the input did not change the fingerprint")
	}
}

func TestNewManifest(t *testing.T) {
	m := NewManifest("jtpa.csv", core.NewHash([]byte("jtpa")), testSettings())
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.Seed != 42 {
		t.Errorf("Expected embedded settings seed 42, got %d", m.Seed)
	}
	if m.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	empty := &Manifest{}
	if err := empty.Validate(); err == nil {
		t.Error("Expected validation error for empty manifest")
	}
}
