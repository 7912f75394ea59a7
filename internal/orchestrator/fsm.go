// Package orchestrator drives the deck workflow as a small state machine.
// Build requests walk ParseRequest, BuildInitial, and a VerifyQuality /
// RefineDeck loop; modification requests walk RouteIntent and
// UserModification. Routing depends only on the shape of the input.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/builder"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/modify"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// State names one phase of the workflow.
type State string

const (
	StateParseRequest     State = "parse_request"
	StateBuildInitial     State = "build_initial"
	StateVerifyQuality    State = "verify_quality"
	StateRefineDeck       State = "refine_deck"
	StateRouteIntent      State = "route_intent"
	StateUserModification State = "user_modification"
	StateTerminal         State = "terminal"
)

// Config tunes the build loop.
type Config struct {
	// QualityThreshold is the overall score at which refinement stops.
	QualityThreshold float64
	// MaxIterations caps build-plus-refine passes. Zero means build once
	// without refinement.
	MaxIterations int
	// PhaseTimeout bounds each individual phase.
	PhaseTimeout time.Duration
}

// DefaultConfig returns the stock loop settings.
func DefaultConfig() Config {
	return Config{
		QualityThreshold: 0.7,
		MaxIterations:    5,
		PhaseTimeout:     60 * time.Second,
	}
}

// IterationState records one visited phase for the response trace.
type IterationState struct {
	Iteration int       `json:"iteration"`
	State     State     `json:"state"`
	Quality   float64   `json:"quality,omitempty"`
	At        time.Time `json:"at"`
}

// Result is the terminal output of one chat request.
type Result struct {
	DeckID     string           `json:"deck_id,omitempty"`
	Deck       *cards.Deck      `json:"deck"`
	Metrics    *quality.Metrics `json:"metrics,omitempty"`
	Iterations []IterationState `json:"iterations,omitempty"`
	Changes    []string         `json:"changes,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Message    string           `json:"message"`
}

// Orchestrator wires the builder, analyzer, and executor into the workflow.
type Orchestrator struct {
	builder  *builder.Builder
	analyzer *quality.Analyzer
	executor *modify.Executor
	decks    *storage.DeckStore
	cfg      Config
	logger   *zap.Logger
}

// New creates an orchestrator. decks may be nil; results are then not
// persisted.
func New(b *builder.Builder, analyzer *quality.Analyzer, executor *modify.Executor, decks *storage.DeckStore, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QualityThreshold == 0 {
		cfg.QualityThreshold = DefaultConfig().QualityThreshold
	}
	if cfg.PhaseTimeout == 0 {
		cfg.PhaseTimeout = DefaultConfig().PhaseTimeout
	}
	return &Orchestrator{builder: b, analyzer: analyzer, executor: executor, decks: decks, cfg: cfg, logger: logger}
}

// ChatRequest is one unified chat turn. A present ExistingDeck selects the
// modification flow; otherwise the message starts a fresh build. Threshold
// and iteration overrides are optional.
type ChatRequest struct {
	Message          string
	ExistingDeck     *cards.Deck
	QualityThreshold *float64
	MaxIterations    *int
}

// HandleChat routes a chat request. Routing depends only on the request
// shape, never on the message text.
func (o *Orchestrator) HandleChat(ctx context.Context, req ChatRequest) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "message must not be empty")
	}

	cfg := o.cfg
	if req.QualityThreshold != nil {
		cfg.QualityThreshold = *req.QualityThreshold
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}

	if req.ExistingDeck != nil {
		return o.runModification(ctx, req.Message, req.ExistingDeck)
	}
	return o.runBuild(ctx, req.Message, cfg)
}

func (o *Orchestrator) runBuild(ctx context.Context, message string, cfg Config) (*Result, error) {
	res := &Result{}
	trace := func(iteration int, state State, q float64) {
		res.Iterations = append(res.Iterations, IterationState{
			Iteration: iteration, State: state, Quality: q, At: time.Now().UTC(),
		})
	}

	trace(0, StateParseRequest, 0)
	params := ParseRequest(message)
	spec := builder.BuildSpec{
		Format:    params.Format,
		Archetype: params.Archetype,
		Colors:    params.Colors,
		Strategy:  message,
	}
	o.logger.Info("starting deck build",
		zap.String("format", spec.Format),
		zap.String("archetype", spec.Archetype),
		zap.Strings("colors", spec.Colors))

	iteration := 1
	deck, err := o.buildPhase(ctx, spec)
	if err != nil {
		return nil, err
	}
	trace(iteration, StateBuildInitial, 0)

	var metrics *quality.Metrics
	for {
		metrics, err = o.verifyPhase(ctx, deck)
		if err != nil {
			return nil, err
		}
		trace(iteration, StateVerifyQuality, metrics.Overall)

		if !shouldContinue(cfg, iteration, metrics.Overall) {
			break
		}

		refined, err := o.refinePhase(ctx, deck, metrics)
		if err != nil {
			return nil, err
		}
		deck = refined
		iteration++
		trace(iteration, StateRefineDeck, 0)
	}
	if err := builder.ValidateDeck(deck); err != nil {
		return nil, err
	}
	trace(iteration, StateTerminal, metrics.Overall)

	res.Deck = deck
	res.Metrics = metrics
	res.Message = fmt.Sprintf("Built a %s %s deck in %d iteration(s). Quality Score: %.2f",
		deck.Format, deck.Archetype, iteration, metrics.Overall)

	if o.decks != nil {
		id, err := o.persist(ctx, deck, metrics)
		if err != nil {
			return nil, err
		}
		res.DeckID = id
	}
	return res, nil
}

func (o *Orchestrator) runModification(ctx context.Context, message string, deck *cards.Deck) (*Result, error) {
	res := &Result{}
	now := func(state State) {
		res.Iterations = append(res.Iterations, IterationState{State: state, At: time.Now().UTC()})
	}

	now(StateRouteIntent)
	now(StateUserModification)
	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()
	mod, err := o.executor.Execute(phaseCtx, deck, message, true)
	if err != nil {
		return nil, timeoutErr(err, "modification")
	}

	now(StateTerminal)
	res.Deck = mod.Deck
	res.Metrics = mod.Metrics
	res.Changes = mod.Changes
	res.Warnings = mod.Warnings
	res.Message = fmt.Sprintf("Applied %s modification with %d change(s). Quality Score: %.2f",
		mod.Intent.IntentType, len(mod.Changes), mod.Metrics.Overall)
	return res, nil
}

// shouldContinue reports whether another refinement pass should run.
func shouldContinue(cfg Config, iteration int, overall float64) bool {
	return iteration < cfg.MaxIterations && overall < cfg.QualityThreshold
}

func (o *Orchestrator) buildPhase(ctx context.Context, spec builder.BuildSpec) (*cards.Deck, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()
	deck, err := o.builder.BuildInitial(phaseCtx, spec)
	if err != nil {
		return nil, timeoutErr(err, "initial build")
	}
	return deck, nil
}

func (o *Orchestrator) verifyPhase(ctx context.Context, deck *cards.Deck) (*quality.Metrics, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()
	if err := phaseCtx.Err(); err != nil {
		return nil, timeoutErr(err, "quality check")
	}
	return o.analyzer.Verify(phaseCtx, deck), nil
}

func (o *Orchestrator) refinePhase(ctx context.Context, deck *cards.Deck, metrics *quality.Metrics) (*cards.Deck, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()
	refined, err := o.builder.Refine(phaseCtx, deck, metrics)
	if err != nil {
		return nil, timeoutErr(err, "refinement")
	}
	return refined, nil
}

func (o *Orchestrator) persist(ctx context.Context, deck *cards.Deck, metrics *quality.Metrics) (string, error) {
	score := metrics.Overall
	rec := &storage.DeckRecord{
		Name:             fmt.Sprintf("%s %s Deck", deck.Format, deck.Archetype),
		Format:           deck.Format,
		Archetype:        deck.Archetype,
		Colors:           deck.Colors,
		Deck:             deck,
		QualityScore:     &score,
		ImprovementNotes: strings.Join(metrics.Issues, "; "),
	}
	return o.decks.Save(ctx, rec)
}

// timeoutErr converts a deadline expiry into the timeout error kind.
func timeoutErr(err error, phase string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, phase+" timed out", err)
	}
	return err
}
