// Package combat implements attack resolution, the action handlers, and the
// presenter contract: the seam where player actions become encounter
// mutations and outgoing messages.
package combat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/loot"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// Action carries the fields common to every player action: the authenticated
// issuer, the actor the action claims to be from, and a correlation id used
// for idempotent replay.
type Action struct {
	IdentityID string
	ActorID    string
	ActionID   string
}

// AttackAction is an auto-attack against an enemy slot. An empty slot with
// more than one living enemy triggers a target picker instead of an attack.
type AttackAction struct {
	Action
	EnemySlot string
}

// AbilityAction casts an equipped ability at an enemy slot.
type AbilityAction struct {
	Action
	AbilityID string
	EnemySlot string
}

// FleeAction attempts to leave the encounter. Permitted out of turn; only
// consumes the turn when it was the actor's.
type FleeAction struct {
	Action
}

// HuntRequest is the external trigger that creates an encounter at a
// location. The first party member is the leader.
type HuntRequest struct {
	Kind           encounter.Kind
	LocationID     string
	ChannelBinding string
	MessageBinding string
	PartyIDs       []string
}

// Config wires a Handler. Encounters, Store, Catalog, and Presenter are
// required; the rest default sensibly.
type Config struct {
	Encounters *encounter.Manager
	Store      EncounterStore
	Catalog    CatalogStore
	Players    PlayerStore
	PlayerFX   effect.Ledger // persistent per-player ledger
	Presenter  Presenter
	Hooks      FlavorHooks // optional
	Loot       *loot.Distributor
	Source     dice.Source
	Logger     *zap.Logger
	MaxParty   int
}

// Handler is the action entry point for one game server process. Every public
// method runs its whole validate-then-mutate sequence inside the target
// encounter's action lock; actions from different players serialize there in
// arrival order.
type Handler struct {
	encounters *encounter.Manager
	store      EncounterStore
	catalog    CatalogStore
	players    PlayerStore
	playerFX   effect.Ledger
	presenter  Presenter
	hooks      FlavorHooks
	src        dice.Source
	loot       *loot.Distributor
	log        *zap.Logger
	maxParty   int
	now        func() time.Time
}

// NewHandler builds a Handler from cfg.
//
// Precondition: cfg.Encounters, cfg.Store, cfg.Catalog, and cfg.Presenter must
// be non-nil.
func NewHandler(cfg Config) *Handler {
	if cfg.Source == nil {
		cfg.Source = dice.NewCryptoSource()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxParty <= 0 {
		cfg.MaxParty = 4
	}
	return &Handler{
		encounters: cfg.Encounters,
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		players:    cfg.Players,
		playerFX:   cfg.PlayerFX,
		presenter:  cfg.Presenter,
		hooks:      cfg.Hooks,
		src:        cfg.Source,
		loot:       cfg.Loot,
		log:        cfg.Logger,
		maxParty:   cfg.MaxParty,
		now:        time.Now,
	}
}

// StartHunt creates an encounter at a location: one spawned enemy per party
// member, chosen uniformly from the location's templates. The first actor is
// prompted immediately.
//
// Postcondition: on success every party member is registered in exactly one
// active encounter and the encounter is persisted.
func (h *Handler) StartHunt(ctx context.Context, req HuntRequest) (*encounter.Encounter, error) {
	if len(req.PartyIDs) == 0 {
		return nil, fmt.Errorf("hunt request has no party members")
	}
	if len(req.PartyIDs) > h.maxParty {
		return nil, fmt.Errorf("party of %d exceeds cap %d: %w", len(req.PartyIDs), h.maxParty, ErrPartyTooLarge)
	}

	templates, err := h.catalog.EnemiesAt(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("loading enemies for location %s: %w", req.LocationID, err)
	}
	if len(templates) == 0 {
		h.presenter.Whisper(ctx, req.PartyIDs[0], "There is nothing to hunt here.")
		return nil, fmt.Errorf("location %s: %w", req.LocationID, ErrNoEnemiesPresent)
	}

	participants := make([]*encounter.Participant, 0, len(req.PartyIDs))
	agility := make(map[string]int, len(req.PartyIDs))
	for i, playerID := range req.PartyIDs {
		attrs, _, _, err := h.playerCombatStats(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("loading stats for player %s: %w", playerID, err)
		}
		ps, err := h.catalog.PlayerStats(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("loading stats for player %s: %w", playerID, err)
		}
		agility[playerID] = attrs.Agility
		participants = append(participants, &encounter.Participant{
			PlayerID:  playerID,
			IsLeader:  i == 0,
			Health:    ps.CurrentHealth,
			MaxHealth: ps.MaxHealth,
			Mana:      ps.CurrentMana,
			MaxMana:   ps.MaxMana,
		})
	}

	enemies := make([]*encounter.EnemyInstance, 0, len(req.PartyIDs))
	for range req.PartyIDs {
		tmpl := templates[h.src.Intn(len(templates))]
		enemies = append(enemies, &encounter.EnemyInstance{
			SlotID:    uuid.NewString(),
			Template:  &tmpl,
			Health:    tmpl.Health,
			MaxHealth: tmpl.Health,
			IsBoss:    tmpl.IsBoss,
		})
	}

	enc, err := h.encounters.Create(encounter.Params{
		Kind:           req.Kind,
		LocationID:     req.LocationID,
		MaxPlayers:     h.maxParty,
		ChannelBinding: req.ChannelBinding,
		MessageBinding: req.MessageBinding,
		Participants:   participants,
		Enemies:        enemies,
	})
	if err != nil {
		return nil, err
	}
	enc.InitTurnOrder(func(id string) int { return agility[id] })

	if err := h.persist(ctx, enc, h.store.Insert); err != nil {
		h.encounters.End(enc.ID, encounter.EndCorrupted)
		return nil, fmt.Errorf("persisting encounter %s: %w", enc.ID, err)
	}

	for _, en := range enemies {
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("A %s appears!", en.Name()))
		if h.hooks != nil && en.Template.HookScript != "" {
			if line, ok := h.hooks.EncounterStart(en.Template.HookScript, en.Name()); ok {
				h.presenter.Broadcast(ctx, enc, line)
			}
		}
	}
	h.presenter.PromptTurn(ctx, enc, enc.CurrentTurn, h.candidates(enc))
	return enc, nil
}

// Attack handles an auto-attack action.
func (h *Handler) Attack(ctx context.Context, act AttackAction) error {
	enc, err := h.begin(ctx, act.Action, true)
	if err != nil {
		return err
	}
	defer enc.Unlock()

	target, picked, err := h.pickTarget(ctx, enc, act.ActorID, act.EnemySlot)
	if err != nil || !picked {
		return err
	}
	if !enc.MarkResolved(act.ActionID) {
		return nil
	}

	attrs, _, mods, err := h.playerCombatStats(ctx, act.ActorID)
	if err != nil {
		return h.corrupt(ctx, enc, fmt.Errorf("stats for %s: %w", act.ActorID, err))
	}

	res := ResolveMelee(attrs, target.Template.Attributes, h.src)
	switch {
	case res.Dodged:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s dodges %s's attack.", target.Name(), act.ActorID))
	case res.Blocked:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s blocks %s's attack.", target.Name(), act.ActorID))
	case !res.Hit:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s swings at %s and misses.", act.ActorID, target.Name()))
	default:
		profile, err := h.weaponProfile(ctx, act.ActorID, attrs.Strength)
		if err != nil {
			return h.corrupt(ctx, enc, fmt.Errorf("weapon profile for %s: %w", act.ActorID, err))
		}
		bd := damage.Compute(attrs, target.Template.Resistances, profile, res.Critical, mods, h.src)
		total := bd.Total()
		if err := enc.DamageEnemy(target.SlotID, total); err != nil {
			return h.corrupt(ctx, enc, err)
		}
		h.broadcastHit(ctx, enc, act.ActorID, target, res.Critical, total)
		h.announceIfDefeated(ctx, enc, target)
	}

	if h.checkEnd(ctx, enc) {
		return nil
	}
	if h.enemyPhase(ctx, enc, act.ActorID) {
		return nil
	}
	return h.nextTurn(ctx, enc, act.ActorID)
}

// Ability handles an ability cast. Mana is consumed only on a successful
// cast; a miss costs the turn but not the mana.
func (h *Handler) Ability(ctx context.Context, act AbilityAction) error {
	enc, err := h.begin(ctx, act.Action, true)
	if err != nil {
		return err
	}
	defer enc.Unlock()

	equipped, err := h.catalog.AbilityEquipped(ctx, act.ActorID, act.AbilityID)
	if err != nil {
		return h.corrupt(ctx, enc, fmt.Errorf("ability lookup for %s: %w", act.ActorID, err))
	}
	if !equipped {
		h.presenter.Whisper(ctx, act.ActorID, "You don't have that ability equipped.")
		return fmt.Errorf("ability %s: %w", act.AbilityID, ErrAbilityNotEquipped)
	}
	ability, err := h.catalog.Ability(ctx, act.AbilityID)
	if err != nil {
		return h.corrupt(ctx, enc, fmt.Errorf("ability %s: %w", act.AbilityID, err))
	}
	actor := enc.ParticipantByID(act.ActorID)
	if actor.Mana < ability.ManaCost {
		h.presenter.Whisper(ctx, act.ActorID, fmt.Sprintf("Not enough mana for %s.", ability.Name))
		return fmt.Errorf("ability %s needs %d mana: %w", ability.Name, ability.ManaCost, ErrInsufficientMana)
	}

	target, picked, err := h.pickTarget(ctx, enc, act.ActorID, act.EnemySlot)
	if err != nil || !picked {
		return err
	}
	if !enc.MarkResolved(act.ActionID) {
		return nil
	}

	attrs, _, mods, err := h.playerCombatStats(ctx, act.ActorID)
	if err != nil {
		return h.corrupt(ctx, enc, fmt.Errorf("stats for %s: %w", act.ActorID, err))
	}

	res := ResolveAbility(attrs, target.Template.Attributes, ability.Magical(), h.src)
	if !res.Hit {
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s's %s fizzles against %s.", act.ActorID, ability.Name, target.Name()))
	} else {
		profile := h.abilityProfile(ability, attrs)
		bd := damage.Compute(attrs, target.Template.Resistances, profile, res.Critical, mods, h.src)
		total := bd.Total()
		if err := enc.DamageEnemy(target.SlotID, total); err != nil {
			return h.corrupt(ctx, enc, err)
		}
		if err := enc.SpendMana(act.ActorID, ability.ManaCost); err != nil {
			return h.corrupt(ctx, enc, err)
		}
		if ability.Status != nil {
			if err := enc.Effects.Apply(ctx, effect.Effect{
				ID:          uuid.NewString(),
				EncounterID: enc.ID,
				Target:      effect.Target{Kind: effect.TargetEnemy, ID: target.SlotID},
				Attribute:   ability.Status.Attribute,
				Value:       ability.Status.Value,
				Duration:    ability.Status.Duration,
				Start:       h.now(),
			}); err != nil {
				return h.corrupt(ctx, enc, err)
			}
		}
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s hits %s with %s for %d damage.", act.ActorID, target.Name(), ability.Name, total))
		h.announceIfDefeated(ctx, enc, target)
	}

	if h.checkEnd(ctx, enc) {
		return nil
	}
	if h.enemyPhase(ctx, enc, act.ActorID) {
		return nil
	}
	return h.nextTurn(ctx, enc, act.ActorID)
}

// Flee handles an escape attempt. Out-of-turn flees are permitted; a failed
// flee only consumes the turn when it was the actor's.
func (h *Handler) Flee(ctx context.Context, act FleeAction) error {
	enc, err := h.begin(ctx, act.Action, false)
	if err != nil {
		return err
	}
	defer enc.Unlock()

	if !enc.MarkResolved(act.ActionID) {
		return nil
	}

	attrs, _, _, err := h.playerCombatStats(ctx, act.ActorID)
	if err != nil {
		return h.corrupt(ctx, enc, fmt.Errorf("stats for %s: %w", act.ActorID, err))
	}

	living := enc.LivingEnemies()
	agilities := make([]int, len(living))
	for i, en := range living {
		agilities[i] = en.Template.Attributes.Agility
	}
	escaped, pursuers := ResolveFlee(attrs.Agility, agilities, h.src)

	if escaped {
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s escapes the battle!", act.ActorID))
		if enc.Kind == encounter.KindSolo {
			h.end(ctx, enc, encounter.EndFled)
			return nil
		}
		heldTurn := enc.CurrentTurn == act.ActorID
		enc.RemoveParticipant(act.ActorID)
		h.encounters.ReleasePlayer(act.ActorID)
		if len(enc.Participants) == 0 {
			h.end(ctx, enc, encounter.EndFled)
			return nil
		}
		h.syncState(ctx, enc, act.ActorID)
		if heldTurn {
			h.presenter.PromptTurn(ctx, enc, enc.CurrentTurn, h.candidates(enc))
		}
		return nil
	}

	h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s fails to escape!", act.ActorID))
	for _, i := range pursuers {
		if !enc.ParticipantByID(act.ActorID).Alive() {
			break
		}
		h.enemyAttack(ctx, enc, living[i], act.ActorID)
	}
	if h.checkEnd(ctx, enc) {
		return nil
	}
	if enc.CurrentTurn == act.ActorID {
		return h.nextTurn(ctx, enc, act.ActorID)
	}
	h.syncState(ctx, enc, act.ActorID)
	return nil
}

// begin runs the shared validation preamble and acquires the encounter's
// action lock. On success the caller owns the lock.
func (h *Handler) begin(ctx context.Context, act Action, requireTurn bool) (*encounter.Encounter, error) {
	if act.IdentityID != act.ActorID {
		h.presenter.Whisper(ctx, act.IdentityID, "You can't act for another player.")
		return nil, fmt.Errorf("identity %s claims actor %s: %w", act.IdentityID, act.ActorID, ErrUnauthorizedActor)
	}
	enc, ok := h.encounters.GetByPlayer(act.ActorID)
	if !ok {
		h.presenter.Whisper(ctx, act.ActorID, "You are not in a battle.")
		return nil, fmt.Errorf("player %s: %w", act.ActorID, ErrEncounterNotFound)
	}
	enc.Lock()
	if !enc.Active {
		enc.Unlock()
		return nil, fmt.Errorf("encounter %s: %w", enc.ID, ErrEncounterInactive)
	}
	if requireTurn && enc.CurrentTurn != act.ActorID {
		enc.Unlock()
		h.presenter.Whisper(ctx, act.ActorID, "It's not your turn.")
		return nil, fmt.Errorf("player %s, current turn %s: %w", act.ActorID, enc.CurrentTurn, ErrNotYourTurn)
	}
	return enc, nil
}

// pickTarget resolves the enemy slot for an attack or cast. With no slot
// supplied it auto-targets a lone enemy, or presents a target picker and
// reports picked=false (turn not consumed).
func (h *Handler) pickTarget(ctx context.Context, enc *encounter.Encounter, actorID, slot string) (*encounter.EnemyInstance, bool, error) {
	living := enc.LivingEnemies()
	if len(living) == 0 {
		h.presenter.Broadcast(ctx, enc, "The battlefield is empty. The hunt is called off.")
		h.end(ctx, enc, encounter.EndNoEnemies)
		return nil, false, fmt.Errorf("encounter %s: %w", enc.ID, ErrNoEnemiesPresent)
	}
	if slot == "" {
		if len(living) > 1 {
			h.presenter.PresentTargetPicker(ctx, actorID, h.candidates(enc))
			return nil, false, nil
		}
		return living[0], true, nil
	}
	target := enc.EnemyBySlot(slot)
	if target == nil || !target.Alive() {
		h.presenter.Whisper(ctx, actorID, "That target is gone.")
		return nil, false, fmt.Errorf("slot %s: %w", slot, ErrInvalidTarget)
	}
	return target, true, nil
}

// playerCombatStats resolves a player's effective attributes (total-over-base
// plus additive ledger stat mods), resistances, and their active effect list
// in ledger order.
func (h *Handler) playerCombatStats(ctx context.Context, playerID string) (stats.Attributes, stats.Resistances, []effect.Effect, error) {
	ps, err := h.catalog.PlayerStats(ctx, playerID)
	if err != nil {
		return stats.Attributes{}, nil, nil, err
	}
	attrs := ps.Effective()
	res := ps.EffectiveResistances()

	var mods []effect.Effect
	if h.playerFX != nil {
		mods, err = h.playerFX.ListActive(ctx, effect.Target{Kind: effect.TargetPlayer, ID: playerID})
		if err != nil {
			return stats.Attributes{}, nil, nil, err
		}
		for _, m := range mods {
			if stats.IsAttribute(m.Attribute) {
				attrs = attrs.Add(m.Attribute, m.Value)
			}
		}
	}
	return attrs, res, mods, nil
}

// weaponProfile assembles the attack profile from equipped combat weapons in
// slot priority order (1H, 2H, off-hand); duplicate types keep the first
// encountered dice. An all-empty profile falls back to the legacy flat path:
// one crushing hit of strength plus the summed legacy weapon magnitudes.
func (h *Handler) weaponProfile(ctx context.Context, playerID string, strength int) (damage.Profile, error) {
	items, err := h.catalog.EquippedWeapons(ctx, playerID)
	if err != nil {
		return nil, err
	}
	bySlot := map[string]int{catalog.SlotPrimary1H: 0, catalog.SlotPrimary2H: 1, catalog.SlotOffHand: 2}
	ordered := make([]damage.Profile, 3)
	legacy := 0
	for _, item := range items {
		if !item.IsCombatWeapon() {
			continue
		}
		legacy += item.LegacyDamage
		if idx, ok := bySlot[item.Slot]; ok && ordered[idx] == nil {
			ordered[idx] = item.Profile
		}
	}
	var present []damage.Profile
	for _, p := range ordered {
		if p != nil {
			present = append(present, p)
		}
	}
	merged := damage.MergeFirstWins(present...)
	if merged.Empty() {
		return legacyProfile(damage.Crushing, strength+legacy), nil
	}
	return merged, nil
}

// abilityProfile returns the ability's dice profile, or the legacy flat
// fallback mapped to the ability's element: base magnitude plus half
// intelligence for magical abilities.
func (h *Handler) abilityProfile(a catalog.Ability, attrs stats.Attributes) damage.Profile {
	if !a.Profile.Empty() {
		return a.Profile
	}
	base := a.LegacyDamage
	if a.Magical() {
		base += attrs.Intelligence / 2
	}
	return legacyProfile(a.Element, base)
}

// enemyProfile returns the enemy template's profile, or a flat crushing hit
// of its strength.
func enemyProfile(tmpl *catalog.Enemy) damage.Profile {
	if !tmpl.Profile.Empty() {
		return tmpl.Profile
	}
	return legacyProfile(damage.Crushing, tmpl.Attributes.Strength)
}

func legacyProfile(t damage.Type, magnitude int) damage.Profile {
	if magnitude < 0 {
		magnitude = 0
	}
	return damage.Profile{t: dice.Expression{Raw: strconv.Itoa(magnitude), Modifier: magnitude}}
}

// enemyPhase runs the counter-attack phase: enemy DoT ticks first, then one
// attack per living enemy — at the original actor in solo, at a uniformly
// random living participant in party. Returns true when the encounter ended.
func (h *Handler) enemyPhase(ctx context.Context, enc *encounter.Encounter, actorID string) bool {
	enc.Phase = encounter.PhaseEnemyTurn

	for _, en := range enc.LivingEnemies() {
		h.tickDoTs(ctx, enc, effect.Target{Kind: effect.TargetEnemy, ID: en.SlotID}, en.Name())
	}
	if h.checkEnd(ctx, enc) {
		return true
	}

	for _, en := range enc.LivingEnemies() {
		var defenderID string
		if enc.Kind == encounter.KindSolo {
			p := enc.ParticipantByID(actorID)
			if p == nil || !p.Alive() {
				break
			}
			defenderID = actorID
		} else {
			living := enc.LivingParticipants()
			if len(living) == 0 {
				break
			}
			defenderID = living[h.src.Intn(len(living))].PlayerID
		}
		h.enemyAttack(ctx, enc, en, defenderID)
	}
	if h.checkEnd(ctx, enc) {
		return true
	}

	enc.Phase = encounter.PhasePlayerTurn
	return false
}

// enemyAttack resolves one enemy melee swing at a participant.
func (h *Handler) enemyAttack(ctx context.Context, enc *encounter.Encounter, en *encounter.EnemyInstance, defenderID string) {
	defAttrs, defRes, _, err := h.playerCombatStats(ctx, defenderID)
	if err != nil {
		h.log.Error("defender stats unavailable, enemy swing skipped",
			zap.String("encounter_id", enc.ID),
			zap.String("player_id", defenderID),
			zap.Error(err))
		return
	}

	res := ResolveMelee(en.Template.Attributes, defAttrs, h.src)
	switch {
	case res.Dodged:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s dodges %s's attack.", defenderID, en.Name()))
	case res.Blocked:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s blocks %s's attack.", defenderID, en.Name()))
	case !res.Hit:
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s lunges at %s and misses.", en.Name(), defenderID))
	default:
		bd := damage.Compute(en.Template.Attributes, defRes, enemyProfile(en.Template), res.Critical, nil, h.src)
		total := bd.Total()
		if err := enc.DamageParticipant(defenderID, total); err != nil {
			h.log.Error("enemy damage write failed", zap.String("encounter_id", enc.ID), zap.Error(err))
			return
		}
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s hits %s for %d damage.", en.Name(), defenderID, total))
	}
}

// tickDoTs applies the target's active dot_<type> effects as flat damage.
// Called at the start of a player's turn and at the start of the enemy phase.
func (h *Handler) tickDoTs(ctx context.Context, enc *encounter.Encounter, target effect.Target, name string) {
	_ = enc.Effects.PurgeExpired(ctx, target)
	active, err := enc.Effects.ListActive(ctx, target)
	if err != nil {
		h.log.Error("effect ledger read failed", zap.String("encounter_id", enc.ID), zap.Error(err))
		return
	}
	for _, e := range active {
		dt, ok := effect.DoTType(e.Attribute)
		if !ok || e.Value <= 0 {
			continue
		}
		switch target.Kind {
		case effect.TargetPlayer:
			_ = enc.DamageParticipant(target.ID, e.Value)
		case effect.TargetEnemy:
			_ = enc.DamageEnemy(target.ID, e.Value)
		}
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s suffers %d %s damage.", name, e.Value, dt))
	}
}

// nextTurn hands the turn onward after a consumed action: solo re-prompts the
// same actor, party advances the scheduler. DoTs on the incoming player tick
// before their prompt; a DoT death advances again.
func (h *Handler) nextTurn(ctx context.Context, enc *encounter.Encounter, actorID string) error {
	if enc.Kind == encounter.KindSolo {
		h.tickDoTs(ctx, enc, effect.Target{Kind: effect.TargetPlayer, ID: actorID}, actorID)
		if h.checkEnd(ctx, enc) {
			return nil
		}
		h.syncState(ctx, enc, actorID)
		h.presenter.PromptTurn(ctx, enc, actorID, h.candidates(enc))
		return nil
	}

	for range enc.TurnOrder {
		id, ok, err := enc.Advance()
		if err != nil {
			return h.corrupt(ctx, enc, err)
		}
		if !ok {
			if !h.checkEnd(ctx, enc) {
				return h.corrupt(ctx, enc, fmt.Errorf("no living participant to advance to in encounter %s", enc.ID))
			}
			return nil
		}
		h.tickDoTs(ctx, enc, effect.Target{Kind: effect.TargetPlayer, ID: id}, id)
		if h.checkEnd(ctx, enc) {
			return nil
		}
		if enc.ParticipantByID(id).Alive() {
			h.syncState(ctx, enc, id)
			h.presenter.PromptTurn(ctx, enc, id, h.candidates(enc))
			return nil
		}
		// DoT killed the incoming player; keep walking.
	}
	return h.corrupt(ctx, enc, fmt.Errorf("turn walk exhausted in encounter %s", enc.ID))
}

// checkEnd runs end detection and tears the encounter down on a terminal
// outcome. Returns true when the encounter ended.
func (h *Handler) checkEnd(ctx context.Context, enc *encounter.Encounter) bool {
	switch enc.Outcome() {
	case encounter.Victory:
		h.endVictory(ctx, enc)
	case encounter.Defeat:
		h.endDefeat(ctx, enc, encounter.EndDefeat)
	case encounter.Draw:
		h.endDefeat(ctx, enc, encounter.EndDraw)
	default:
		return false
	}
	return true
}

// endVictory distributes loot and tears the encounter down. Loot and the
// is_active flip happen in the same critical section.
func (h *Handler) endVictory(ctx context.Context, enc *encounter.Encounter) {
	var tables [][]catalog.DropRow
	for _, en := range enc.Enemies {
		rows, err := h.catalog.DropTable(ctx, en.Template.ID)
		if err != nil {
			h.log.Error("drop table unavailable",
				zap.String("encounter_id", enc.ID),
				zap.String("enemy_id", en.Template.ID),
				zap.Error(err))
			continue
		}
		tables = append(tables, rows)
	}
	stacks := loot.RollDrops(tables, h.src)

	recipients := make([]loot.Recipient, 0, len(enc.Participants))
	for _, p := range enc.LivingParticipants() {
		recipients = append(recipients, loot.Recipient{PlayerID: p.PlayerID, IsLeader: p.IsLeader})
	}

	h.presenter.Broadcast(ctx, enc, "Victory! The enemies are defeated.")
	if h.loot != nil && len(stacks) > 0 && len(recipients) > 0 {
		rep, err := h.loot.Distribute(ctx, enc.ID, stacks, recipients)
		if err != nil {
			h.log.Error("loot distribution failed", zap.String("encounter_id", enc.ID), zap.Error(err))
		}
		for _, a := range rep.Awards {
			h.presenter.NotifyDM(ctx, a.PlayerID, fmt.Sprintf("You receive %d × item %s.", a.Quantity, a.ItemID))
		}
		for _, s := range rep.Skipped {
			h.presenter.NotifyDM(ctx, s.PlayerID, fmt.Sprintf("Your inventory is full; %d × item %s was left behind.", s.Quantity, s.ItemID))
		}
	}
	h.end(ctx, enc, encounter.EndVictory)
}

// endDefeat persists health = 0 for every participant and tears down.
func (h *Handler) endDefeat(ctx context.Context, enc *encounter.Encounter, reason encounter.EndReason) {
	h.presenter.Broadcast(ctx, enc, "The party has fallen.")
	if h.players != nil {
		for _, p := range enc.Participants {
			if err := h.players.PersistDefeat(ctx, p.PlayerID); err != nil {
				h.log.Error("defeat persistence failed",
					zap.String("encounter_id", enc.ID),
					zap.String("player_id", p.PlayerID),
					zap.Error(err))
			}
		}
	}
	h.end(ctx, enc, reason)
}

// end marks the encounter inactive with reason and mirrors the terminal state
// to the store.
func (h *Handler) end(ctx context.Context, enc *encounter.Encounter, reason encounter.EndReason) {
	h.encounters.End(enc.ID, reason)
	if err := h.persist(ctx, enc, h.store.MarkEnded); err != nil {
		h.log.Error("terminal state persistence failed",
			zap.String("encounter_id", enc.ID),
			zap.String("reason", string(reason)),
			zap.Error(err))
	}
}

// corrupt handles an invariant violation: log, mark the encounter inactive
// with reason corrupted, and tell the participants. Never fatal to the
// process.
func (h *Handler) corrupt(ctx context.Context, enc *encounter.Encounter, cause error) error {
	h.log.Error("encounter invariant violation",
		zap.String("encounter_id", enc.ID),
		zap.Error(cause))
	for _, p := range enc.Participants {
		h.presenter.NotifyDM(ctx, p.PlayerID, "The battle was cancelled due to an internal error.")
	}
	h.encounters.End(enc.ID, encounter.EndCorrupted)
	if err := h.persist(ctx, enc, h.store.MarkEnded); err != nil {
		h.log.Error("corrupted-state persistence failed", zap.String("encounter_id", enc.ID), zap.Error(err))
	}
	return cause
}

// syncState mirrors committed mutations to the store before the next prompt.
// One retry inside the critical section; a second failure is logged and the
// actor gets a generic apology, the in-memory record stays authoritative.
func (h *Handler) syncState(ctx context.Context, enc *encounter.Encounter, actorID string) {
	if err := h.persist(ctx, enc, h.store.Sync); err != nil {
		h.log.Error("encounter sync failed", zap.String("encounter_id", enc.ID), zap.Error(err))
		h.presenter.Whisper(ctx, actorID, "Something went wrong saving the battle; please try again.")
	}
}

// persist invokes a store write with a single retry.
func (h *Handler) persist(ctx context.Context, enc *encounter.Encounter, write func(context.Context, *encounter.Encounter) error) error {
	if err := write(ctx, enc); err != nil {
		return write(ctx, enc)
	}
	return nil
}

func (h *Handler) candidates(enc *encounter.Encounter) []TargetCandidate {
	living := enc.LivingEnemies()
	out := make([]TargetCandidate, 0, len(living))
	for _, en := range living {
		out = append(out, TargetCandidate{
			SlotID:    en.SlotID,
			Name:      en.Name(),
			Health:    en.Health,
			MaxHealth: en.MaxHealth,
		})
	}
	return out
}

func (h *Handler) broadcastHit(ctx context.Context, enc *encounter.Encounter, actorID string, target *encounter.EnemyInstance, critical bool, total int) {
	if critical {
		h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s lands a critical hit on %s for %d damage!", actorID, target.Name(), total))
		return
	}
	h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s hits %s for %d damage.", actorID, target.Name(), total))
}

func (h *Handler) announceIfDefeated(ctx context.Context, enc *encounter.Encounter, target *encounter.EnemyInstance) {
	if target.Alive() {
		return
	}
	h.presenter.Broadcast(ctx, enc, fmt.Sprintf("%s collapses.", target.Name()))
	if h.hooks != nil && target.Template.HookScript != "" {
		if line, ok := h.hooks.EnemyDefeated(target.Template.HookScript, target.Name()); ok {
			h.presenter.Broadcast(ctx, enc, line)
		}
	}
}
