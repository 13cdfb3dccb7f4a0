// Package matcher ranks stored job records against a structured query
// profile. The score is a weighted fusion of independently normalized
// sub-scores; factors absent from the profile have their weight
// redistributed proportionally across the rest instead of dragging the
// score to zero.
package matcher

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/jobs"
)

// Factor names used in the per-result breakdown.
const (
	FactorSemantic   = "semantic"
	FactorSkills     = "skills"
	FactorLocation   = "location"
	FactorExperience = "experience"
	FactorJobType    = "job_type"
)

// Base factor weights; they sum to 1.0 before any redistribution.
var baseWeights = map[string]float64{
	FactorSemantic:   0.40,
	FactorSkills:     0.30,
	FactorLocation:   0.15,
	FactorExperience: 0.10,
	FactorJobType:    0.05,
}

const neutralScore = 0.5

// Embedder vectorizes a batch of texts against a shared vocabulary or
// model. Index 0 of the result corresponds to texts[0], and so on.
type Embedder interface {
	Embed(texts []string) ([][]float64, error)
}

// Config tunes ranking behavior.
type Config struct {
	// ScoreFloor ranks (not drops) results scoring below it last.
	ScoreFloor float64
}

// Matcher is a pure, stateless ranker over a corpus snapshot.
type Matcher struct {
	embedder Embedder
	logger   *zap.Logger
	floor    float64
}

// New creates a Matcher. embedder may be nil, in which case the semantic
// factor is dropped and its weight redistributed.
func New(embedder Embedder, logger *zap.Logger, cfg Config) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{embedder: embedder, logger: logger, floor: cfg.ScoreFloor}
}

// factor pairs a weight with a scoring function over a corpus index.
type factor struct {
	name   string
	weight float64
	score  func(i int) float64
}

// Match ranks the corpus against profile. Every record is returned;
// records under the score floor sort after the rest. Ties break on more
// recent scraped_at, then URL.
func (m *Matcher) Match(ctx context.Context, profile jobs.QueryProfile, corpus []jobs.Record) ([]jobs.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	factors := m.activeFactors(profile, corpus)
	redistribute(factors)

	results := make([]jobs.MatchResult, len(corpus))
	for i, record := range corpus {
		breakdown := make(map[string]float64, len(factors))
		var total float64
		for _, f := range factors {
			s := f.score(i)
			breakdown[f.name] = s
			total += f.weight * s
		}
		if total < 0 {
			total = 0
		}
		if total > 1 {
			total = 1
		}
		results[i] = jobs.MatchResult{Record: record, Score: total, Breakdown: breakdown}
	}

	floor := m.floor
	sort.SliceStable(results, func(i, j int) bool {
		belowI, belowJ := results[i].Score < floor, results[j].Score < floor
		if belowI != belowJ {
			return belowJ
		}
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Record.ScrapedAt.Equal(results[j].Record.ScrapedAt) {
			return results[i].Record.ScrapedAt.After(results[j].Record.ScrapedAt)
		}
		return results[i].Record.URL < results[j].Record.URL
	})
	return results, nil
}

// activeFactors builds the scoring table for the given profile, leaving
// out factors whose profile side is absent.
func (m *Matcher) activeFactors(profile jobs.QueryProfile, corpus []jobs.Record) []factor {
	var factors []factor

	if sem := m.semanticFactor(profile, corpus); sem != nil {
		factors = append(factors, *sem)
	}
	if len(profile.Skills) > 0 {
		want := normalizeSkills(profile.Skills)
		factors = append(factors, factor{
			name:   FactorSkills,
			weight: baseWeights[FactorSkills],
			score: func(i int) float64 {
				return skillsOverlap(want, corpus[i].Skills)
			},
		})
	}
	if profile.Location != "" {
		want := strings.ToLower(strings.TrimSpace(profile.Location))
		factors = append(factors, factor{
			name:   FactorLocation,
			weight: baseWeights[FactorLocation],
			score: func(i int) float64 {
				return locationScore(want, corpus[i].Location)
			},
		})
	}
	if profile.Experience != "" {
		wantBand, wantOK := parseExperience(profile.Experience)
		factors = append(factors, factor{
			name:   FactorExperience,
			weight: baseWeights[FactorExperience],
			score: func(i int) float64 {
				return experienceScore(wantBand, wantOK, corpus[i].Experience)
			},
		})
	}
	if profile.JobType != "" {
		want := strings.ToLower(strings.TrimSpace(profile.JobType))
		factors = append(factors, factor{
			name:   FactorJobType,
			weight: baseWeights[FactorJobType],
			score: func(i int) float64 {
				if strings.EqualFold(want, strings.TrimSpace(corpus[i].JobType)) {
					return 1
				}
				return 0
			},
		})
	}
	return factors
}

// semanticFactor embeds the query and every record text in one batch.
// A missing embedder or an embedding failure degrades to nil (the factor
// is dropped) with a warning, never a hard error.
func (m *Matcher) semanticFactor(profile jobs.QueryProfile, corpus []jobs.Record) *factor {
	if profile.RawQuery == "" {
		return nil
	}
	if m.embedder == nil {
		m.logger.Warn("no embedding backend configured, ranking on lexical factors only")
		return nil
	}
	texts := make([]string, 0, len(corpus)+1)
	texts = append(texts, profile.RawQuery)
	for _, r := range corpus {
		texts = append(texts, recordText(r))
	}
	vectors, err := m.embedder.Embed(texts)
	if err != nil || len(vectors) != len(texts) {
		m.logger.Warn("embedding backend failed, dropping semantic factor", zap.Error(err))
		return nil
	}
	query := vectors[0]
	return &factor{
		name:   FactorSemantic,
		weight: baseWeights[FactorSemantic],
		score: func(i int) float64 {
			return cosine(query, vectors[i+1])
		},
	}
}

// redistribute rescales the active weights to sum to 1.0.
func redistribute(factors []factor) {
	var total float64
	for _, f := range factors {
		total += f.weight
	}
	if total == 0 {
		return
	}
	for i := range factors {
		factors[i].weight /= total
	}
}

// skillsOverlap is the fraction of requested skills the record covers.
// Coverage, not strict Jaccard: extra record skills never lower the
// score, which keeps ranking monotone under record-skill supersets.
func skillsOverlap(want map[string]struct{}, recordSkills []string) float64 {
	if len(want) == 0 {
		return 0
	}
	have := normalizeSkills(recordSkills)
	matched := 0
	for skill := range want {
		if _, ok := have[skill]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

// locationScore is 1 on case-insensitive substring match either way,
// neutral when the record has no location, 0 otherwise.
func locationScore(want, recordLocation string) float64 {
	have := strings.ToLower(strings.TrimSpace(recordLocation))
	if have == "" {
		return neutralScore
	}
	if strings.Contains(have, want) || strings.Contains(want, have) {
		return 1
	}
	return 0
}

// experienceScore is 1 when the bands overlap, 0 when both parse and
// they do not, and neutral when either side is unparseable free text.
func experienceScore(want experienceBand, wantOK bool, recordExperience string) float64 {
	if !wantOK {
		return neutralScore
	}
	have, ok := parseExperience(recordExperience)
	if !ok {
		return neutralScore
	}
	if want.overlaps(have) {
		return 1
	}
	return 0
}

func recordText(r jobs.Record) string {
	parts := []string{r.Title, r.Description}
	parts = append(parts, r.Skills...)
	return strings.Join(parts, " ")
}
