// Package promise tracks announced commitments from intake to verification
// and issues the retroactive headline corrections.
package promise

import (
	"regexp"
	"strings"

	"github.com/okian/repute/internal/domain/model"
)

type cue struct {
	re     *regexp.Regexp
	weight int
}

func cues(weight int, words ...string) []cue {
	out := make([]cue, 0, len(words))
	for _, w := range words {
		out = append(out, cue{re: regexp.MustCompile(`\b` + w + `\b`), weight: weight})
	}
	return out
}

var (
	announcementCues = append(
		cues(2, "announces?", "announced", "plans?", "pledges?", "pledged", "promises?", "promised",
			"vows?", "vowed", "commits?", "committed to", "proposes?", "proposed", "unveils?", "unveiled",
			"intends?", "set to", "aims? to", "to introduce"),
		cues(1, "will", "going to", "next year", "by 20[0-9]{2}")...,
	)
	achievementCues = append(
		cues(2, "delivered", "completed", "passed", "enacted", "implemented", "opened", "launched",
			"signed into law", "achieved", "secured"),
		cues(1, "approved", "finished", "built", "funded", "introduced", "began", "started")...,
	)
)

func score(text string, set []cue) int {
	total := 0
	for _, c := range set {
		if c.re.MatchString(text) {
			total += c.weight
		}
	}
	return total
}

// Classify labels an event from lexical cues in its title and summary.
// Strong one-sided evidence gives announcement or achievement, weak
// one-sided evidence is ambiguous, two-sided evidence is mixed, and no
// cues at all is none.
func Classify(title, summary string) model.EventKind {
	text := strings.ToLower(title + " " + summary)
	ann := score(text, announcementCues)
	ach := score(text, achievementCues)
	switch {
	case ann == 0 && ach == 0:
		return model.KindNone
	case ann > 0 && ach > 0:
		return model.KindMixed
	case max(ann, ach) < 2:
		return model.KindAmbiguous
	case ann > 0:
		return model.KindAnnouncement
	default:
		return model.KindAchievement
	}
}
