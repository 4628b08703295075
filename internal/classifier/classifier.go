// ABOUTME: Sector classifier (C3): rule-based scorer over tense, temporal, imperative, and affect cues
// ABOUTME: Deterministic for a given input; primary is argmax, secondaries cross a fixed threshold
package classifier

import (
	"strings"

	"github.com/harper/cortexmem/internal/domain"
)

// SecondaryThreshold is the score a non-primary sector must cross to be
// included as a secondary sector.
const SecondaryThreshold = 0.4

var episodicCues = []string{"yesterday", "today", "last week", "this morning", "ago", "happened", "went", "met", "saw", "visited"}
var semanticCues = []string{"is", "are", "means", "defined as", "fact", "always", "consists of", "equals"}
var proceduralCues = []string{"how to", "step", "first,", "then,", "run", "execute", "configure", "install", "use the"}
var emotionalCues = []string{"feel", "felt", "happy", "sad", "angry", "excited", "worried", "love", "hate", "frustrat"}
var reflectiveCues = []string{"realize", "in retrospect", "i think", "i believe", "lesson learned", "looking back", "reflect"}
var firstPersonMarkers = []string{"i ", "i'm", "i've", "my ", "me "}

// Classify scores the five sectors for text and returns the primary sector
// plus any secondaries crossing SecondaryThreshold. Classification is a pure
// function of text: identical input always yields identical output.
func Classify(text string) (primary domain.Sector, secondaries []domain.Sector) {
	scores := score(text)

	primary = domain.TiebreakOrder[0]
	best := -1.0
	for _, s := range domain.TiebreakOrder {
		if scores[s] > best {
			best = scores[s]
			primary = s
		}
	}

	for _, s := range domain.TiebreakOrder {
		if s == primary {
			continue
		}
		if scores[s] >= SecondaryThreshold {
			secondaries = append(secondaries, s)
		}
	}
	return primary, secondaries
}

func score(text string) map[domain.Sector]float64 {
	lower := strings.ToLower(text)
	scores := map[domain.Sector]float64{
		domain.SectorEpisodic:   countHits(lower, episodicCues) * 0.3,
		domain.SectorSemantic:   countHits(lower, semanticCues) * 0.3,
		domain.SectorProcedural: countHits(lower, proceduralCues) * 0.35,
		domain.SectorEmotional:  countHits(lower, emotionalCues) * 0.35,
		domain.SectorReflective: countHits(lower, reflectiveCues) * 0.35,
	}

	fp := countHits(lower, firstPersonMarkers)
	scores[domain.SectorEpisodic] += fp * 0.15
	scores[domain.SectorEmotional] += fp * 0.1
	scores[domain.SectorReflective] += fp * 0.1

	// A bare statement with no cues at all defaults toward semantic, the
	// tie-break order's top preference, via a small floor.
	hasAnyCue := false
	for _, v := range scores {
		if v > 0 {
			hasAnyCue = true
			break
		}
	}
	if !hasAnyCue {
		scores[domain.SectorSemantic] = 0.5
	}

	for s, v := range scores {
		if v > 1.0 {
			scores[s] = 1.0
		}
	}
	return scores
}

func countHits(lower string, cues []string) float64 {
	hits := 0.0
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			hits++
		}
	}
	return hits
}
