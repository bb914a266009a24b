package combat

import (
	"context"

	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

// TargetCandidate is one selectable enemy for a turn prompt or target picker.
type TargetCandidate struct {
	SlotID    string
	Name      string
	Health    int
	MaxHealth int
}

// Presenter is the only surface through which the engine speaks to the chat
// front-end. Implementations bind a concrete channel to the encounter's
// channel binding at creation; the engine never touches the UI framework.
//
// Presenter calls happen after state mutation has committed, so observed
// messages always reflect committed state. Implementations must not call back
// into the engine synchronously — user choices re-enter as new actions.
type Presenter interface {
	// PromptTurn tells the current actor it is their turn, listing the
	// living enemies they can target.
	PromptTurn(ctx context.Context, enc *encounter.Encounter, actorID string, candidates []TargetCandidate)
	// Broadcast sends a public line to the encounter's channel binding.
	Broadcast(ctx context.Context, enc *encounter.Encounter, line string)
	// Whisper sends a private, possibly ephemeral, line to a player.
	Whisper(ctx context.Context, playerID, line string)
	// NotifyDM sends a line to the player's private channel.
	NotifyDM(ctx context.Context, playerID, line string)
	// PresentTargetPicker asks the actor to choose a target; the choice
	// arrives later as a fresh action carrying the selected slot.
	PresentTargetPicker(ctx context.Context, playerID string, candidates []TargetCandidate)
}

// LogPresenter is the default Presenter binding for the service binary: every
// verb is logged structurally instead of rendered. Useful headless and as the
// fallback until a chat front-end registers its own binding.
type LogPresenter struct {
	log *zap.Logger
}

// NewLogPresenter creates a LogPresenter.
//
// Precondition: log must be non-nil.
func NewLogPresenter(log *zap.Logger) *LogPresenter {
	return &LogPresenter{log: log}
}

func (p *LogPresenter) PromptTurn(_ context.Context, enc *encounter.Encounter, actorID string, candidates []TargetCandidate) {
	p.log.Info("turn prompt",
		zap.String("encounter_id", enc.ID),
		zap.String("actor_id", actorID),
		zap.Int("targets", len(candidates)))
}

func (p *LogPresenter) Broadcast(_ context.Context, enc *encounter.Encounter, line string) {
	p.log.Info("broadcast",
		zap.String("encounter_id", enc.ID),
		zap.String("channel", enc.ChannelBinding),
		zap.String("line", line))
}

func (p *LogPresenter) Whisper(_ context.Context, playerID, line string) {
	p.log.Info("whisper", zap.String("player_id", playerID), zap.String("line", line))
}

func (p *LogPresenter) NotifyDM(_ context.Context, playerID, line string) {
	p.log.Info("dm", zap.String("player_id", playerID), zap.String("line", line))
}

func (p *LogPresenter) PresentTargetPicker(_ context.Context, playerID string, candidates []TargetCandidate) {
	p.log.Info("target picker", zap.String("player_id", playerID), zap.Int("targets", len(candidates)))
}
