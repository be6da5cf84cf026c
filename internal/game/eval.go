// internal/game/eval.go
//
// Pure guess evaluation. No I/O, no state, deterministic.

package game

// Evaluate reports whether a higher/lower guess is correct.
//
// Rule: equal scores count as a correct guess regardless of direction.
// A tie never loses; that is the game rule, not a tiebreak omission.
func Evaluate(knownScore, hiddenScore int, guessedHigher bool) bool {
	if hiddenScore == knownScore {
		return true
	}
	actuallyHigher := hiddenScore > knownScore
	return guessedHigher == actuallyHigher
}
