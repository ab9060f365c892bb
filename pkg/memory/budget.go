package memory

// Estimator approximates the model token cost of a piece of text.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator charges one token per CharsPerToken runes, rounded up, with a
// floor of one token per turn.
type CharEstimator struct {
	CharsPerToken int
}

func (e CharEstimator) Estimate(text string) int {
	per := e.CharsPerToken
	if per <= 0 {
		per = 4
	}
	runes := len([]rune(text))
	tokens := (runes + per - 1) / per
	if tokens < 1 {
		return 1
	}
	return tokens
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(text string) int

func (f EstimatorFunc) Estimate(text string) int { return f(text) }
