package classify

import (
	"math"
	"sort"

	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/normalize"
)

// ModelFormatVersion is the persisted format tag for trained models.
// A loader seeing any other value treats the artifact as absent.
const ModelFormatVersion = 1

// DefaultMinExamples is the smallest corpus Train accepts.
const DefaultMinExamples = 2

// Example is one labeled training document.
type Example struct {
	Text     string
	Category string
}

// Model is a trained TF-IDF nearest-centroid classifier. Instances are
// immutable after training; retraining produces a fresh Model.
type Model struct {
	IDF              map[string]float64            `json:"idf"`
	Centroids        map[string]map[string]float64 `json:"centroids"`
	Labels           []string                      `json:"labels"`
	FormatVersion    int                           `json:"format_version"`
	TokenizerVersion int                           `json:"tokenizer_version"`
}

// Train builds a model from the full corpus. It returns nil when the
// corpus is below minExamples or has fewer than two distinct
// categories; callers treat a nil model as untrained. Given the same
// corpus in the same order, output is bit-identical on every call.
func Train(corpus []Example, minExamples int) *Model {
	if minExamples <= 0 {
		minExamples = DefaultMinExamples
	}
	if len(corpus) < minExamples {
		return nil
	}

	labels := distinctCategories(corpus)
	if len(labels) < 2 {
		return nil
	}

	docs := make([][]string, len(corpus))
	df := make(map[string]int)
	for i, ex := range corpus {
		docs[i] = normalize.Tokens(ex.Text)
		for _, term := range distinctTerms(docs[i]) {
			df[term]++
		}
	}

	// Smoothed IDF, sklearn-style: ln((1+N)/(1+df)) + 1.
	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	sums := make(map[string]map[string]float64, len(labels))
	for _, label := range labels {
		sums[label] = make(map[string]float64)
	}

	for i, ex := range corpus {
		vec := vectorize(docs[i], idf)
		if vec == nil {
			continue
		}
		acc := sums[ex.Category]
		for term, w := range vec {
			acc[term] += w
		}
	}

	centroids := make(map[string]map[string]float64, len(labels))
	for label, sum := range sums {
		centroids[label] = l2Normalize(sum)
	}

	return &Model{
		FormatVersion:    ModelFormatVersion,
		TokenizerVersion: normalize.TokenizerVersion,
		Labels:           labels,
		IDF:              idf,
		Centroids:        centroids,
	}
}

// Trained reports whether the model can score queries.
func (m *Model) Trained() bool {
	return m != nil && len(m.Centroids) >= 2 && len(m.IDF) > 0
}

// Valid reports whether a loaded model matches the formats this build
// understands. Anything else forces a retrain rather than a guess.
func (m *Model) Valid() bool {
	return m != nil &&
		m.FormatVersion == ModelFormatVersion &&
		m.TokenizerVersion == normalize.TokenizerVersion
}

// Predict scores text against every category centroid and returns the
// best match with cosine similarity as confidence. Out-of-vocabulary
// terms contribute nothing; a query with no known terms, or an
// untrained model, yields nil.
func (m *Model) Predict(text string) *model.Prediction {
	if !m.Trained() {
		return nil
	}

	query := vectorize(normalize.Tokens(text), m.IDF)
	if query == nil {
		return nil
	}

	terms := sortedTerms(query)

	var bestLabel string
	var bestScore float64
	for _, label := range m.Labels {
		centroid, ok := m.Centroids[label]
		if !ok {
			continue
		}

		var score float64
		for _, term := range terms {
			score += query[term] * centroid[term]
		}

		if score > bestScore || (score == bestScore && bestLabel == "") {
			bestLabel = label
			bestScore = score
		}
	}

	if bestLabel == "" || bestScore <= 0 {
		return nil
	}
	if bestScore > 1 {
		bestScore = 1 // guard against float drift
	}

	return &model.Prediction{
		Category:   bestLabel,
		Confidence: bestScore,
		Source:     model.SourceStatistical,
	}
}

// vectorize builds an L2-normalized TF-IDF vector. Terms absent from
// the vocabulary are skipped; nil means nothing survived.
func vectorize(tokens []string, idf map[string]float64) map[string]float64 {
	tf := make(map[string]float64)
	for _, term := range tokens {
		if _, ok := idf[term]; ok {
			tf[term]++
		}
	}
	if len(tf) == 0 {
		return nil
	}

	for term := range tf {
		tf[term] *= idf[term]
	}
	return l2Normalize(tf)
}

// l2Normalize scales the vector to unit length, summing squares in
// sorted term order so repeated runs produce identical floats.
func l2Normalize(vec map[string]float64) map[string]float64 {
	terms := sortedTerms(vec)

	var sumSquares float64
	for _, term := range terms {
		sumSquares += vec[term] * vec[term]
	}
	if sumSquares == 0 {
		return vec
	}

	norm := math.Sqrt(sumSquares)
	out := make(map[string]float64, len(vec))
	for _, term := range terms {
		out[term] = vec[term] / norm
	}
	return out
}

func sortedTerms(vec map[string]float64) []string {
	terms := make([]string, 0, len(vec))
	for term := range vec {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func distinctTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, term := range tokens {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

func distinctCategories(corpus []Example) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, ex := range corpus {
		if _, ok := seen[ex.Category]; ok {
			continue
		}
		seen[ex.Category] = struct{}{}
		labels = append(labels, ex.Category)
	}
	sort.Strings(labels)
	return labels
}

// BuildCorpus converts a memory table into training examples, sorted by
// key so retraining from the same table is deterministic.
func BuildCorpus(table MemoryTable) []Example {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	corpus := make([]Example, 0, len(keys))
	for _, key := range keys {
		corpus = append(corpus, Example{Text: key, Category: table[key].Category})
	}
	return corpus
}
