// Package speaker identifies enrolled speakers by comparing voice
// embeddings against a profile catalog built from enrollment samples.
//
// The catalog is immutable once built and published through an atomic
// pointer, so identification reads never block on a reload in flight.
// A reload builds a complete replacement catalog and swaps it in only
// on full success; a partial failure keeps the previous catalog live.
package speaker

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"voice-scripture-service/internal/embed"
	"voice-scripture-service/internal/fault"
)

// Unknown is the label returned when no profile scores under the
// accept threshold.
const Unknown = "unknown"

var sampleExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
	".ogg": true,
}

// profile is one enrolled speaker: every embedding extracted from
// their samples plus the raw audio of the first sample, kept for
// voice cloning.
type profile struct {
	label      string
	embeddings [][]float32
	sample     []byte
}

// catalog is an immutable snapshot of all enrolled profiles.
type catalog struct {
	profiles map[string]*profile
}

// Match is the outcome of one identification.
type Match struct {
	// Label is the best-scoring enrolled speaker, or Unknown.
	Label string `json:"label"`
	// Score is the cosine distance to the closest enrollment
	// embedding; lower is more similar. 1.0 when no profiles exist.
	Score float64 `json:"score"`
	// Accepted reports whether Score cleared the threshold.
	Accepted bool `json:"accepted"`
}

// Gate performs threshold-based speaker identification.
type Gate struct {
	extractor embed.Adapter
	threshold float64

	snapshot atomic.Pointer[catalog]

	// reloadMu serializes writers (Reload, Enroll). Readers go
	// through the snapshot and never take it.
	reloadMu sync.Mutex
}

// NewGate creates a gate with an empty catalog. Until profiles are
// loaded every identification returns Unknown.
func NewGate(extractor embed.Adapter, threshold float64) *Gate {
	g := &Gate{extractor: extractor, threshold: threshold}
	g.snapshot.Store(&catalog{profiles: map[string]*profile{}})
	return g
}

// Identify embeds the audio clip and scores it against every
// enrollment embedding of every profile. The best (lowest) distance
// wins; if it exceeds the threshold the clip is attributed to Unknown.
func (g *Gate) Identify(ctx context.Context, audio []byte) (Match, error) {
	cat := g.snapshot.Load()
	if len(cat.profiles) == 0 {
		return Match{Label: Unknown, Score: 1.0}, nil
	}

	vec, err := g.extractor.Embed(ctx, audio)
	if err != nil {
		return Match{}, fault.Wrap(fault.KindCollaborator, err, "embedding extraction failed")
	}

	best := Match{Label: Unknown, Score: math.Inf(1)}
	for _, p := range cat.profiles {
		for _, e := range p.embeddings {
			d := cosineDistance(vec, e)
			if d < best.Score {
				best.Score = d
				best.Label = p.label
			}
		}
	}
	if best.Score > g.threshold {
		best.Label = Unknown
		best.Accepted = false
	} else {
		best.Accepted = true
	}
	return best, nil
}

// Reload rebuilds the catalog from every enrollment sample under dir.
// The filename stem is the speaker label; a trailing _2, _3 suffix
// groups extra samples under the same label. The swap is
// all-or-nothing: any unreadable file or failed extraction leaves the
// current catalog untouched.
func (g *Gate) Reload(ctx context.Context, dir string) error {
	g.reloadMu.Lock()
	defer g.reloadMu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fault.Wrap(fault.KindProfileReload, err, "cannot read voice directory %s", dir)
	}

	next := &catalog{profiles: map[string]*profile{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !sampleExtensions[ext] {
			continue
		}
		label := labelFromStem(strings.TrimSuffix(name, filepath.Ext(name)))
		if label == "" {
			continue
		}

		audio, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fault.Wrap(fault.KindProfileReload, err, "cannot read sample %s", name)
		}
		vec, err := g.extractor.Embed(ctx, audio)
		if err != nil {
			return fault.Wrap(fault.KindProfileReload, err, "cannot embed sample %s", name)
		}

		p := next.profiles[label]
		if p == nil {
			p = &profile{label: label, sample: audio}
			next.profiles[label] = p
		}
		p.embeddings = append(p.embeddings, vec)
	}

	g.snapshot.Store(next)
	return nil
}

// Enroll adds samples for a label to the live catalog without
// touching any other profile. Copy-on-write: a new catalog is built
// sharing the existing profiles.
func (g *Gate) Enroll(ctx context.Context, label string, samples [][]byte) error {
	if label == "" || label == Unknown {
		return fault.New(fault.KindProfileReload, "invalid speaker label %q", label)
	}
	if len(samples) == 0 {
		return fault.New(fault.KindProfileReload, "no samples for speaker %s", label)
	}

	vecs := make([][]float32, 0, len(samples))
	for _, audio := range samples {
		vec, err := g.extractor.Embed(ctx, audio)
		if err != nil {
			return fault.Wrap(fault.KindCollaborator, err, "cannot embed enrollment sample for %s", label)
		}
		vecs = append(vecs, vec)
	}

	g.reloadMu.Lock()
	defer g.reloadMu.Unlock()

	old := g.snapshot.Load()
	next := &catalog{profiles: make(map[string]*profile, len(old.profiles)+1)}
	for k, v := range old.profiles {
		next.profiles[k] = v
	}

	p := next.profiles[label]
	if p == nil {
		p = &profile{label: label, sample: samples[0]}
	} else {
		merged := &profile{label: label, sample: p.sample}
		merged.embeddings = append(merged.embeddings, p.embeddings...)
		p = merged
	}
	p.embeddings = append(p.embeddings, vecs...)
	next.profiles[label] = p

	g.snapshot.Store(next)
	return nil
}

// Sample returns the raw enrollment audio for a label, used as the
// cloning reference for synthesized replies. ok is false when the
// label is not enrolled.
func (g *Gate) Sample(label string) ([]byte, bool) {
	p := g.snapshot.Load().profiles[label]
	if p == nil {
		return nil, false
	}
	return p.sample, true
}

// Ready reports whether the embedding extractor can serve requests.
func (g *Gate) Ready(ctx context.Context) error {
	return g.extractor.Ready(ctx)
}

// Count returns the number of enrolled speakers.
func (g *Gate) Count() int {
	return len(g.snapshot.Load().profiles)
}

// Labels returns the enrolled speaker labels in sorted order.
func (g *Gate) Labels() []string {
	cat := g.snapshot.Load()
	out := make([]string, 0, len(cat.profiles))
	for label := range cat.profiles {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// labelFromStem strips a trailing _N sample counter so insuk_2.wav
// enrolls under insuk.
func labelFromStem(stem string) string {
	if i := strings.LastIndexByte(stem, '_'); i > 0 {
		suffix := stem[i+1:]
		if suffix != "" && isDigits(suffix) {
			return stem[:i]
		}
	}
	return stem
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cosineDistance returns 1 minus the cosine similarity of two
// vectors. Zero means identical direction, values near 1 mean
// unrelated. Mismatched or zero-norm vectors score the maximum 1.0.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1.0
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
