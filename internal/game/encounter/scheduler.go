package encounter

import (
	"fmt"
	"sort"
)

// InitTurnOrder sorts the living participants by effective agility descending,
// ties broken by ascending player id, and points the turn at the head.
//
// Precondition: agilityOf must be non-nil; at least one participant is alive.
// Postcondition: CurrentTurn == TurnOrder[0], TurnNumber == 0,
// Phase == PhasePlayerTurn.
func (e *Encounter) InitTurnOrder(agilityOf func(playerID string) int) {
	order := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		if p.Alive() {
			order = append(order, p.PlayerID)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		ai, aj := agilityOf(order[i]), agilityOf(order[j])
		if ai != aj {
			return ai > aj
		}
		return order[i] < order[j]
	})
	e.TurnOrder = order
	if len(order) > 0 {
		e.CurrentTurn = order[0]
	}
	e.TurnNumber = 0
	e.Phase = PhasePlayerTurn
}

// Advance moves the turn to the next living participant in cyclic order,
// incrementing TurnNumber each time the walk passes the head of the order.
// It returns ("", false) when no living participant remains — the caller ends
// the encounter — and an error when the current turn pointer is not in the
// order (an invariant violation).
//
// Precondition: the caller holds the action lock.
// Postcondition: on (id, true), CurrentTurn == id and the participant is
// alive.
func (e *Encounter) Advance() (string, bool, error) {
	n := len(e.TurnOrder)
	if n == 0 {
		return "", false, nil
	}
	i := e.turnIndex(e.CurrentTurn)
	if i < 0 {
		return "", false, fmt.Errorf("turn pointer %q not in turn order of encounter %s", e.CurrentTurn, e.ID)
	}
	for step := 1; step <= n; step++ {
		j := (i + step) % n
		if j == 0 {
			e.TurnNumber++
		}
		p := e.ParticipantByID(e.TurnOrder[j])
		if p != nil && p.Alive() {
			e.CurrentTurn = p.PlayerID
			return p.PlayerID, true, nil
		}
	}
	return "", false, nil
}

// RemoveParticipant takes a player out of the roster and the turn order
// (flee success). When the leaver held the turn, the next living id from the
// ORIGINAL order after their former slot becomes current — the player who was
// next up before the flee stays next, and TurnNumber is left unchanged. If
// that id is gone too, the walk falls through to the new order.
//
// Precondition: the caller holds the action lock.
// Postcondition: the player appears in neither Participants nor TurnOrder.
func (e *Encounter) RemoveParticipant(playerID string) {
	idx := e.turnIndex(playerID)
	wasCurrent := e.CurrentTurn == playerID

	// Next-up candidate from the original order, skipping the leaver and the
	// dead.
	candidate := ""
	if wasCurrent && idx >= 0 {
		n := len(e.TurnOrder)
		for step := 1; step < n; step++ {
			id := e.TurnOrder[(idx+step)%n]
			p := e.ParticipantByID(id)
			if p != nil && p.Alive() {
				candidate = id
				break
			}
		}
	}

	for i, p := range e.Participants {
		if p.PlayerID == playerID {
			e.Participants = append(e.Participants[:i], e.Participants[i+1:]...)
			break
		}
	}
	for i, id := range e.TurnOrder {
		if id == playerID {
			e.TurnOrder = append(e.TurnOrder[:i], e.TurnOrder[i+1:]...)
			break
		}
	}

	if !wasCurrent {
		return
	}
	if candidate != "" && e.turnIndex(candidate) >= 0 {
		e.CurrentTurn = candidate
		return
	}
	// Fall through to the advance rules on the rewritten order: the element
	// that followed the leaver now sits at their former index.
	e.CurrentTurn = ""
	if n := len(e.TurnOrder); n > 0 {
		start := 0
		if idx >= 0 {
			start = idx % n
		}
		for step := 0; step < n; step++ {
			id := e.TurnOrder[(start+step)%n]
			if p := e.ParticipantByID(id); p != nil && p.Alive() {
				e.CurrentTurn = id
				break
			}
		}
	}
}

func (e *Encounter) turnIndex(playerID string) int {
	for i, id := range e.TurnOrder {
		if id == playerID {
			return i
		}
	}
	return -1
}
