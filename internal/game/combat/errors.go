package combat

import "errors"

// Validation errors are recovered locally: the handler whispers the reason to
// the actor and leaves encounter state untouched. Only invariant violations
// are fatal to an encounter, never to the process.
var (
	// ErrUnauthorizedActor means the issuing identity does not match the
	// player the action claims to be from.
	ErrUnauthorizedActor = errors.New("identity does not match actor")

	// ErrNotYourTurn rejects an attack or ability cast from a player who does
	// not hold the current turn.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrEncounterNotFound means the player has no active encounter.
	ErrEncounterNotFound = errors.New("no active encounter")

	// ErrEncounterInactive means the encounter ended between lookup and lock
	// acquisition.
	ErrEncounterInactive = errors.New("encounter is not active")

	// ErrInvalidTarget covers dead enemies and unknown slot ids. The turn is
	// not consumed.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInsufficientMana rejects an ability cast the actor cannot pay for.
	// The turn is not consumed.
	ErrInsufficientMana = errors.New("insufficient mana")

	// ErrAbilityNotEquipped rejects a cast of an ability the actor does not
	// have equipped.
	ErrAbilityNotEquipped = errors.New("ability not equipped")

	// ErrNoEnemiesPresent means the encounter (or hunt location) holds no
	// living enemies. An active encounter in this state is ended with a
	// diagnostic broadcast.
	ErrNoEnemiesPresent = errors.New("no enemies present")

	// ErrPartyTooLarge rejects a hunt request exceeding the configured party
	// cap.
	ErrPartyTooLarge = errors.New("party too large")
)
