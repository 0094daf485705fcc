package speaker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"voice-scripture-service/internal/embed/mock"
	"voice-scripture-service/internal/fault"
)

const testThreshold = 0.18

func writeSample(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("writing sample %s: %v", name, err)
	}
}

func loadedGate(t *testing.T) (*Gate, string) {
	t.Helper()
	dir := t.TempDir()
	writeSample(t, dir, "insuk.wav", []byte("insuk voice sample"))
	writeSample(t, dir, "mina.wav", []byte("mina voice sample"))

	g := NewGate(mock.New(192), testThreshold)
	if err := g.Reload(context.Background(), dir); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return g, dir
}

func TestIdentify_NoProfiles(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)

	m, err := g.Identify(context.Background(), []byte("anything"))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if m.Label != Unknown {
		t.Errorf("Label = %q, want %q", m.Label, Unknown)
	}
	if m.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", m.Score)
	}
	if m.Accepted {
		t.Error("Accepted = true, want false")
	}
}

func TestIdentify_EnrolledSpeaker(t *testing.T) {
	g, _ := loadedGate(t)

	m, err := g.Identify(context.Background(), []byte("insuk voice sample"))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if m.Label != "insuk" {
		t.Errorf("Label = %q, want insuk", m.Label)
	}
	if !m.Accepted {
		t.Error("Accepted = false, want true")
	}
	if m.Score > testThreshold {
		t.Errorf("Score = %v, want <= %v", m.Score, testThreshold)
	}
}

func TestIdentify_UnenrolledSpeaker(t *testing.T) {
	g, _ := loadedGate(t)

	m, err := g.Identify(context.Background(), []byte("a completely different voice"))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if m.Label != Unknown {
		t.Errorf("Label = %q, want %q", m.Label, Unknown)
	}
	if m.Accepted {
		t.Error("Accepted = true, want false")
	}
}

func TestIdentify_EmbedFailure(t *testing.T) {
	extractor := mock.New(192)
	dir := t.TempDir()
	writeSample(t, dir, "insuk.wav", []byte("insuk voice sample"))

	g := NewGate(extractor, testThreshold)
	if err := g.Reload(context.Background(), dir); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	extractor.SetError(errors.New("extractor down"))
	_, err := g.Identify(context.Background(), []byte("insuk voice sample"))
	if !fault.IsKind(err, fault.KindCollaborator) {
		t.Errorf("Identify() error = %v, want CollaboratorError", err)
	}
}

func TestReload_GroupsSuffixedSamples(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "insuk.wav", []byte("first insuk clip"))
	writeSample(t, dir, "insuk_2.wav", []byte("second insuk clip"))
	writeSample(t, dir, "insuk_3.mp3", []byte("third insuk clip"))

	g := NewGate(mock.New(192), testThreshold)
	if err := g.Reload(context.Background(), dir); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if got := g.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	for _, clip := range []string{"first insuk clip", "second insuk clip", "third insuk clip"} {
		m, err := g.Identify(context.Background(), []byte(clip))
		if err != nil {
			t.Fatalf("Identify(%q) error = %v", clip, err)
		}
		if m.Label != "insuk" {
			t.Errorf("Identify(%q) label = %q, want insuk", clip, m.Label)
		}
	}
}

func TestReload_SkipsNonAudioFiles(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "insuk.wav", []byte("insuk voice sample"))
	writeSample(t, dir, "README.txt", []byte("not audio"))
	writeSample(t, dir, "notes.json", []byte("{}"))

	g := NewGate(mock.New(192), testThreshold)
	if err := g.Reload(context.Background(), dir); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := g.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestReload_MissingDirectory(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)
	err := g.Reload(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !fault.IsKind(err, fault.KindProfileReload) {
		t.Errorf("Reload() error = %v, want ProfileReloadError", err)
	}
}

func TestReload_FailureKeepsOldCatalog(t *testing.T) {
	extractor := mock.New(192)
	dir := t.TempDir()
	writeSample(t, dir, "insuk.wav", []byte("insuk voice sample"))

	g := NewGate(extractor, testThreshold)
	if err := g.Reload(context.Background(), dir); err != nil {
		t.Fatalf("initial Reload() error = %v", err)
	}

	writeSample(t, dir, "mina.wav", []byte("mina voice sample"))
	extractor.SetError(errors.New("extractor down"))
	err := g.Reload(context.Background(), dir)
	if !fault.IsKind(err, fault.KindProfileReload) {
		t.Fatalf("Reload() error = %v, want ProfileReloadError", err)
	}
	extractor.SetError(nil)

	// Old catalog still serves: insuk present, mina never landed.
	if got := g.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	m, err := g.Identify(context.Background(), []byte("insuk voice sample"))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if m.Label != "insuk" {
		t.Errorf("Label = %q, want insuk", m.Label)
	}
}

func TestEnroll(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)

	err := g.Enroll(context.Background(), "insuk", [][]byte{[]byte("clip one"), []byte("clip two")})
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if got := g.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	m, err := g.Identify(context.Background(), []byte("clip two"))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if m.Label != "insuk" || !m.Accepted {
		t.Errorf("Identify() = %+v, want accepted insuk", m)
	}

	sample, ok := g.Sample("insuk")
	if !ok {
		t.Fatal("Sample(insuk) not found")
	}
	if string(sample) != "clip one" {
		t.Errorf("Sample() = %q, want first enrolled clip", sample)
	}
}

func TestEnroll_ExtendsExistingProfile(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)

	if err := g.Enroll(context.Background(), "insuk", [][]byte{[]byte("clip one")}); err != nil {
		t.Fatalf("first Enroll() error = %v", err)
	}
	if err := g.Enroll(context.Background(), "insuk", [][]byte{[]byte("clip two")}); err != nil {
		t.Fatalf("second Enroll() error = %v", err)
	}

	if got := g.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	// Both clips match regardless of enrollment order.
	for _, clip := range []string{"clip one", "clip two"} {
		m, err := g.Identify(context.Background(), []byte(clip))
		if err != nil {
			t.Fatalf("Identify(%q) error = %v", clip, err)
		}
		if m.Label != "insuk" {
			t.Errorf("Identify(%q) label = %q, want insuk", clip, m.Label)
		}
	}
	if sample, _ := g.Sample("insuk"); string(sample) != "clip one" {
		t.Errorf("Sample() = %q, want the original clip", sample)
	}
}

func TestEnroll_DuplicateSampleKeepsUnrelatedScore(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)
	clip := []byte("insuk voice sample")
	unrelated := []byte("a completely different voice")

	if err := g.Enroll(context.Background(), "insuk", [][]byte{clip}); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	before, err := g.Identify(context.Background(), unrelated)
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	// Re-enrolling the same audio adds an identical embedding, so the
	// best score for an unrelated clip must not move.
	if err := g.Enroll(context.Background(), "insuk", [][]byte{clip}); err != nil {
		t.Fatalf("duplicate Enroll() error = %v", err)
	}
	after, err := g.Identify(context.Background(), unrelated)
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if after != before {
		t.Errorf("Identify() after duplicate enrollment = %+v, want %+v", after, before)
	}
}

func TestEnroll_InvalidInput(t *testing.T) {
	g := NewGate(mock.New(192), testThreshold)

	if err := g.Enroll(context.Background(), "", [][]byte{[]byte("x")}); err == nil {
		t.Error("Enroll with empty label succeeded")
	}
	if err := g.Enroll(context.Background(), Unknown, [][]byte{[]byte("x")}); err == nil {
		t.Error("Enroll under the unknown label succeeded")
	}
	if err := g.Enroll(context.Background(), "insuk", nil); err == nil {
		t.Error("Enroll with no samples succeeded")
	}
}

func TestLabels(t *testing.T) {
	g, _ := loadedGate(t)
	got := g.Labels()
	want := []string{"insuk", "mina"}
	if len(got) != len(want) {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIdentify_ConcurrentWithReload(t *testing.T) {
	g, dir := loadedGate(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := g.Identify(context.Background(), []byte("insuk voice sample")); err != nil {
					t.Errorf("Identify() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			if err := g.Reload(context.Background(), dir); err != nil {
				t.Errorf("Reload() error = %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestLabelFromStem(t *testing.T) {
	tests := []struct {
		stem string
		want string
	}{
		{"insuk", "insuk"},
		{"insuk_2", "insuk"},
		{"insuk_10", "insuk"},
		{"kim_minsu", "kim_minsu"},
		{"kim_minsu_2", "kim_minsu"},
		{"_2", "_2"},
		{"insuk_", "insuk_"},
	}
	for _, tt := range tests {
		if got := labelFromStem(tt.stem); got != tt.want {
			t.Errorf("labelFromStem(%q) = %q, want %q", tt.stem, got, tt.want)
		}
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"scaled", []float32{2, 0, 0}, []float32{5, 0, 0}, 0},
		{"mismatched dims", []float32{1, 0}, []float32{1, 0, 0}, 1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}
