package models

import "sort"

// Metric identifies the similarity metric an index scores with. Cosine
// similarity is higher-is-better in [-1,1]; L2 distance is lower-is-better.
// The two are not numerically comparable, so a pipeline carries exactly one
// metric from index to threshold filtering.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// Keep reports whether a score passes the threshold in the metric's sense.
// The comparison is inclusive: at least the threshold for cosine, at most the
// threshold for L2 distance.
func (m Metric) Keep(score, threshold float64) bool {
	if m == MetricL2 {
		return score <= threshold
	}
	return score >= threshold
}

// FallbackPolicy controls what happens when threshold filtering leaves no
// survivors.
type FallbackPolicy string

const (
	// FallbackStrict returns the refusal answer without calling the LLM.
	FallbackStrict FallbackPolicy = "strict"
	// FallbackKeepBest keeps the single best match so the synthesizer always
	// receives at least one unit of context.
	FallbackKeepBest FallbackPolicy = "keep_best"
)

// IndexMatch is one raw hit from a vector index: the unit's position in the
// store plus its score under the index's metric.
type IndexMatch struct {
	UnitID int
	Score  float64
}

// ScoredMatch is the result of comparing a query against one KnowledgeUnit.
type ScoredMatch struct {
	Unit  KnowledgeUnit
	Score float64
	Query string // the query or sub-query that produced this match
}

// RetrievalResult is an ordered, deduplicated sequence of scored matches
// under a single metric, best match first.
type RetrievalResult struct {
	Matches []ScoredMatch
	Metric  Metric
}

// Sort orders matches best-first for the result's metric: descending for
// cosine, ascending for L2 distance. The sort is stable so equal scores keep
// their input order.
func (r *RetrievalResult) Sort() {
	if r.Metric == MetricL2 {
		sort.SliceStable(r.Matches, func(i, j int) bool {
			return r.Matches[i].Score < r.Matches[j].Score
		})
		return
	}
	sort.SliceStable(r.Matches, func(i, j int) bool {
		return r.Matches[i].Score > r.Matches[j].Score
	})
}

// Keep reports whether a match with the given score survives the threshold
// under the result's metric.
func (r *RetrievalResult) Keep(score, threshold float64) bool {
	return r.Metric.Keep(score, threshold)
}

// AnswerOutcome is the top-level search result: the answer text and the
// similarity score of the best surviving match, or 0.0 when nothing survived.
type AnswerOutcome struct {
	Text       string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}
