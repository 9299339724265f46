// Package seed fills a store with synthetic debate sections and news
// events for local runs and demos.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/logger"
)

// Ingestor is the write side of the store the generator needs.
type Ingestor interface {
	UpsertSection(ctx context.Context, s model.DebateSection) error
	InsertEvent(ctx context.Context, e model.NewsEvent) (int64, error)
}

// Config sizes one generation run.
type Config struct {
	Officials int
	Sections  int
	Events    int
	// Seed makes a run reproducible.
	Seed uint64
	// Start is the date of the first section and event.
	Start time.Time
}

// Stats reports what a run wrote.
type Stats struct {
	Sections    int           `json:"sections"`
	Evaluations int           `json:"evaluations"`
	Events      int           `json:"events"`
	Duration    time.Duration `json:"duration"`
}

// Performance buckets for the overall score. Most officials are average;
// the tails are rare.
const (
	caseAverage = iota
	caseStrong
	caseWeak
	caseElite
	caseVeryPoor
	caseMidHigh
	caseMidLow
	caseWide
	bucketCount
)

const (
	minParticipants = 2
	maxParticipants = 5
	wordsPerSpeech  = 180
	dayStep         = 24 * time.Hour
)

var topics = []string{"housing", "health", "budget", "transport", "education", "climate", "policing", "energy"}

var headlines = []struct {
	title   string
	summary string
}{
	{"%s announces plan to fund %d new school places", "The minister pledged the places will be ready next year."},
	{"%s unveils proposal for %d social homes", "The scheme is set to begin by 2027."},
	{"%s opened new %d-bed hospital wing", "The wing was completed on schedule."},
	{"%s secured %d million for rural broadband", "Funding was approved and work began in May."},
	{"%s pledged %d extra gardaí but only part of the rollout has started", "Recruitment began last spring."},
	{"%s attends %d-nation trade summit", "Delegates met in Brussels."},
	{"%s says %d councils will review plans", "Officials intend to respond."},
}

// Generator produces synthetic input rows.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a Generator. Non-positive sizes fall back to small defaults.
func New(cfg Config) *Generator {
	if cfg.Officials <= 0 {
		cfg.Officials = 10
	}
	if cfg.Sections < 0 {
		cfg.Sections = 0
	}
	if cfg.Events < 0 {
		cfg.Events = 0
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().UTC().Truncate(dayStep)
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))}
}

// Run writes every generated section and event to dst.
func (g *Generator) Run(ctx context.Context, dst Ingestor) (Stats, error) {
	start := time.Now()
	var st Stats
	log := logger.Get()
	log.Info(ctx, "seeding store",
		logger.Int("officials", g.cfg.Officials),
		logger.Int("sections", g.cfg.Sections),
		logger.Int("events", g.cfg.Events))

	for i := 0; i < g.cfg.Sections; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		sec := g.Section(int64(i + 1))
		if err := dst.UpsertSection(ctx, sec); err != nil {
			return st, fmt.Errorf("section %d: %w", sec.ID, err)
		}
		st.Sections++
		st.Evaluations += len(sec.Evaluations)
	}
	for i := 0; i < g.cfg.Events; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if _, err := dst.InsertEvent(ctx, g.Event(i)); err != nil {
			return st, fmt.Errorf("event %d: %w", i, err)
		}
		st.Events++
	}

	st.Duration = time.Since(start)
	log.Info(ctx, "seeding finished",
		logger.Int("sections", st.Sections),
		logger.Int("evaluations", st.Evaluations),
		logger.Int("events", st.Events),
		logger.Duration("duration", st.Duration))
	return st, nil
}

// Section builds one debate section with distinct participants.
func (g *Generator) Section(id int64) model.DebateSection {
	n := minParticipants + g.rng.IntN(maxParticipants-minParticipants+1)
	if n > g.cfg.Officials {
		n = g.cfg.Officials
	}
	officials := g.rng.Perm(g.cfg.Officials)[:n]

	sec := model.DebateSection{
		ID:          id,
		DebateDayID: (id-1)/10 + 1,
		Title:       fmt.Sprintf("Section %d: %s", id, topics[int(id)%len(topics)]),
		HeldOn:      g.cfg.Start.Add(time.Duration(id-1) * dayStep),
	}
	best := -1.0
	for _, o := range officials {
		e := g.evaluation(int64(o + 1))
		sec.WordCount += e.WordCount
		if e.OverallScore > best {
			best = e.OverallScore
			winner := e.OfficialID
			sec.WinnerOfficialID = &winner
		}
		sec.Evaluations = append(sec.Evaluations, e)
	}
	if g.rng.IntN(4) > 0 {
		conf := 0.4 + g.rng.Float64()*0.6
		sec.OutcomeConfidence = &conf
	}
	return sec
}

func (g *Generator) evaluation(officialID int64) model.ParticipantEvaluation {
	overall := g.overall()
	speeches := 1 + g.rng.IntN(12)
	e := model.ParticipantEvaluation{
		OfficialID:              officialID,
		SpeechCount:             speeches,
		WordCount:               speeches * (wordsPerSpeech/2 + g.rng.IntN(wordsPerSpeech)),
		Rating:                  rating(overall),
		OverallScore:            overall,
		ArgumentQuality:         jitter(g.rng, overall),
		Relevance:               jitter(g.rng, overall),
		Persuasiveness:          jitter(g.rng, overall),
		FactualAccuracy:         jitter(g.rng, overall),
		RhetoricalEffectiveness: jitter(g.rng, overall),
	}
	for _, i := range g.rng.Perm(len(topics))[:1+g.rng.IntN(3)] {
		e.Topics = append(e.Topics, topics[i])
	}
	if g.rng.IntN(3) > 0 {
		e.Sentiment = &model.Sentiment{
			Positive: g.rng.IntN(int(overall*20) + 1),
			Negative: g.rng.IntN(int((1-overall)*20) + 1),
			Neutral:  g.rng.IntN(5),
		}
	}
	return e
}

// overall draws an overall score in [0,1] from the performance buckets.
func (g *Generator) overall() float64 {
	f := g.rng.Float64()
	switch g.rng.IntN(bucketCount) {
	case caseAverage:
		return 0.3 + f*0.4
	case caseStrong:
		return 0.7 + f*0.2
	case caseWeak:
		return 0.01 + f*0.29
	case caseElite:
		return 0.9 + f*0.1
	case caseVeryPoor:
		return 0.01 + f*0.09
	case caseMidHigh:
		return 0.6 + f*0.2
	case caseMidLow:
		return 0.2 + f*0.2
	default:
		return f
	}
}

// Event builds the i-th synthetic news event.
func (g *Generator) Event(i int) model.NewsEvent {
	h := headlines[g.rng.IntN(len(headlines))]
	official := int64(1 + g.rng.IntN(g.cfg.Officials))
	name := fmt.Sprintf("Official %d", official)
	impact := float64(g.rng.IntN(1200)-200) / 100
	transparency := float64(g.rng.IntN(100)) / 100
	return model.NewsEvent{
		OfficialID:  official,
		Title:       fmt.Sprintf(h.title, name, 10+g.rng.IntN(490)),
		Summary:     h.summary,
		URL:         fmt.Sprintf("https://news.example.org/%d", i+1),
		PublishedAt: g.cfg.Start.Add(time.Duration(i) * time.Hour),
		Impact:      impact,
		Dimensions: map[model.ImpactDimension]float64{
			model.ImpactTransparency:  transparency,
			model.ImpactEffectiveness: impact - transparency,
		},
	}
}

func rating(overall float64) model.Rating {
	switch {
	case overall >= 0.75:
		return model.RatingStrong
	case overall >= 0.5:
		return model.RatingModerate
	case overall >= 0.25:
		return model.RatingWeak
	default:
		return model.RatingPoor
	}
}

func jitter(rng *rand.Rand, v float64) *float64 {
	v += (rng.Float64() - 0.5) * 0.2
	v = min(1, max(0, v))
	return &v
}
