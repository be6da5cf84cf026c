// internal/game/score_seed.go
//
// Deterministic score derivation for terms whose real popularity is unknown:
// user-supplied custom seeds and synthetic placeholders drawn after the term
// pool is exhausted. HMAC keeps the mapping stable across restarts so the
// same seed text always lands on the same score.

package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const seedScoreSalt = "hilo-seed-score-v1"

// seed scores land in the middle of the plausible range so the first guess
// of a custom game is winnable in either direction.
const (
	seedScoreFloor = 100
	seedScoreSpan  = 5000
)

// SeedScore returns a best-effort popularity estimate for text.
func SeedScore(text string) int {
	n := binary.BigEndian.Uint64(seedDigest(text)[:8])
	return seedScoreFloor + int(n%uint64(seedScoreSpan))
}

// TermIDForSeed returns a stable short identifier for a seed text, so the
// same custom seed always maps to the same term id.
func TermIDForSeed(text string) string {
	return hex.EncodeToString(seedDigest(text)[:8])
}

func seedDigest(text string) []byte {
	h := hmac.New(sha256.New, []byte(seedScoreSalt))
	h.Write([]byte(text))
	return h.Sum(nil)
}

// SyntheticTerm builds a placeholder term for round n of a game whose term
// supply ran dry. The id embeds the game id and round so it can never collide
// with a real term or an earlier synthetic one.
func SyntheticTerm(gameID, category string, round int) Term {
	id := fmt.Sprintf("synthetic-%s-%d", gameID, round)
	return Term{
		ID:       id,
		Text:     fmt.Sprintf("Mystery term #%d", round),
		Category: category,
		Score:    SeedScore(id),
	}
}
