package model

// LearningEvent is a user-confirmed (transaction, category) pair.
// It is consumed immediately by the learning coordinator; only its
// effects are persisted.
type LearningEvent struct {
	Transaction       Transaction
	Category          string
	SuggestedCategory string // What the pipeline predicted, if anything
	Tags              []string
}
