package engine

import "character_catcher/internal/domain"

// ClaimStatus classifies the result of one guess. Contention statuses are
// ordinary outcomes, not errors.
type ClaimStatus int

const (
	// ClaimNoActiveSpawn: nothing to claim in this chat. Callers usually
	// ignore it silently.
	ClaimNoActiveSpawn ClaimStatus = iota
	// ClaimNoMatch: the guess does not name the active character. No state
	// was touched.
	ClaimNoMatch
	// ClaimAlreadyClaimed: correct guess, but another user won the race.
	ClaimAlreadyClaimed
	// ClaimSuccess: this user won the spawn.
	ClaimSuccess
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimNoActiveSpawn:
		return "no_active_spawn"
	case ClaimNoMatch:
		return "no_match"
	case ClaimAlreadyClaimed:
		return "already_claimed"
	case ClaimSuccess:
		return "success"
	}
	return "unknown"
}

// ClaimResult is the outcome of OnMessage. Character, Reward and NewBalance
// are set only on ClaimSuccess; Character is also set on ClaimAlreadyClaimed
// so the caller can name what was missed.
type ClaimResult struct {
	Status     ClaimStatus
	Character  domain.Character
	Reward     int64
	NewBalance int64
}

// SpawnStatus classifies a spawn attempt.
type SpawnStatus int

const (
	// SpawnNotDue: cadence has not been reached.
	SpawnNotDue SpawnStatus = iota
	// SpawnAlreadyActive: an unclaimed spawn is still pending in the chat.
	SpawnAlreadyActive
	// SpawnSkipped: the catalog has no eligible characters right now.
	SpawnSkipped
	// SpawnPublished: a new spawn went live.
	SpawnPublished
)

func (s SpawnStatus) String() string {
	switch s {
	case SpawnNotDue:
		return "not_due"
	case SpawnAlreadyActive:
		return "already_active"
	case SpawnSkipped:
		return "skipped"
	case SpawnPublished:
		return "published"
	}
	return "unknown"
}

// SpawnResult is the outcome of OnTick or of a message-count trigger.
// Spawn and Character are set only on SpawnPublished.
type SpawnResult struct {
	Status    SpawnStatus
	Spawn     domain.ActiveSpawn
	Character domain.Character
}
