package game

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
)

// openChallenge locks the newest challenge of jid with one of the statuses,
// marking it expired first when its time is up
func (m *Manager) openChallenge(a *action, jid string, statuses ...string) (*storage.PvpChallenge, error) {
	ch, err := a.tx.LockOpenChallenge(a.chat(), jid, statuses...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}
	if ch == nil {
		return nil, nil
	}
	return m.expireChallenge(a, ch)
}

func (m *Manager) expireChallenge(a *action, ch *storage.PvpChallenge) (*storage.PvpChallenge, error) {
	if a.now.Before(ch.ExpiresAt) {
		return ch, nil
	}
	ch.Status = storage.PvpExpired
	if err := a.tx.SaveChallenge(ch); err != nil {
		return nil, fmt.Errorf("failed to expire challenge: %w", err)
	}
	return nil, nil
}

// lockFighters locks the active creature of every jid in ascending order. A
// non-empty reason means one of them cannot fight.
func (m *Manager) lockFighters(a *action, jids ...string) (map[string]*storage.Creature, string, error) {
	sorted := slices.Clone(jids)
	slices.Sort(sorted)
	out := make(map[string]*storage.Creature, len(sorted))
	for _, jid := range slices.Compact(sorted) {
		c, err := a.tx.LockActiveCreature(jid)
		if err != nil {
			return nil, "", fmt.Errorf("failed to lock active creature: %w", err)
		}
		if c == nil {
			return nil, types.ReasonNoActiveCreature, nil
		}
		if c.HP <= 0 {
			return nil, types.ReasonCreatureFainted, nil
		}
		out[jid] = c
	}
	return out, "", nil
}

// leaveQueue cancels any waiting queue entry of the jids so a player in a
// match is never matched again from the queue
func (m *Manager) leaveQueue(a *action, jids ...string) error {
	sorted := slices.Clone(jids)
	slices.Sort(sorted)
	for _, jid := range slices.Compact(sorted) {
		e, err := a.tx.LockQueueEntry(a.chat(), jid)
		if err != nil {
			return fmt.Errorf("failed to lock queue entry: %w", err)
		}
		if e == nil || e.Status != storage.QueueQueued {
			continue
		}
		e.Status = storage.QueueCancelled
		if err := a.tx.SaveQueueEntry(e); err != nil {
			return fmt.Errorf("failed to leave queue: %w", err)
		}
	}
	return nil
}

// startMatch freezes both active creatures at full health and gives the first
// turn to the faster one
func (m *Manager) startMatch(a *action, ch *storage.PvpChallenge, fighters map[string]*storage.Creature) {
	ch.Snapshot = make(map[string]types.Combatant, 2)
	for jid, c := range fighters {
		snap := toCombatant(c)
		snap.HP = snap.MaxHP
		snap.Status = types.StatusNone
		ch.Snapshot[jid] = snap
	}

	first, second := ch.ChallengerJID, ch.OpponentJID
	fs := combat.EffectiveStat(ch.Snapshot[first], types.StatSpeed)
	ss := combat.EffectiveStat(ch.Snapshot[second], types.StatSpeed)
	if ss > fs || (ss == fs && m.roller.CoinFlip()) {
		first = second
	}

	ch.Status = storage.PvpActive
	ch.TurnJID = first
	ch.Turn = 0
	ch.ExpiresAt = a.now.Add(config.Seconds(m.cfg.PvpTTLSeconds))
	a.logf("The match begins! %s moves first.", ch.Snapshot[first].DisplayName())
}

func (m *Manager) handlePvpChallenge(a *action) error {
	target := a.req.Args.Target
	if target == "" {
		return a.reject(types.ReasonTargetNotFound)
	}
	if target == a.owner() {
		return a.reject(types.ReasonSelfTarget)
	}

	for _, jid := range []string{a.owner(), target} {
		ch, err := m.openChallenge(a, jid, storage.PvpPending, storage.PvpActive)
		if err != nil {
			return err
		}
		if ch != nil {
			return a.reject(types.ReasonMatchInProgress)
		}
	}

	players, err := a.tx.LockPlayers(a.owner(), target)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}
	if players[a.owner()] == nil {
		return a.reject(types.ReasonNotStarted)
	}
	if players[target] == nil {
		return a.reject(types.ReasonTargetNotFound)
	}

	ch := &storage.PvpChallenge{
		ID:            uuid.NewString(),
		ChatID:        a.chat(),
		ChallengerJID: a.owner(),
		OpponentJID:   target,
		Status:        storage.PvpPending,
		ExpiresAt:     a.now.Add(config.Seconds(m.cfg.PvpTTLSeconds)),
	}
	if err := a.tx.CreateChallenge(ch); err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	// Only the challenger leaves the queue; a challenge alone must not knock
	// the target out of it.
	if err := m.leaveQueue(a, a.owner()); err != nil {
		return err
	}
	a.logf("%s challenges %s!", players[a.owner()].Name, players[target].Name)
	a.res.Payload = pvpView(ch)
	return nil
}

// pendingChallenge locks the live challenge addressed to the acting player
func (m *Manager) pendingChallenge(a *action) (*storage.PvpChallenge, error) {
	ch, err := a.tx.LockPendingChallengeFor(a.chat(), a.owner())
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}
	if ch == nil {
		return nil, nil
	}
	return m.expireChallenge(a, ch)
}

func (m *Manager) handlePvpAccept(a *action) error {
	ch, err := m.pendingChallenge(a)
	if err != nil {
		return err
	}
	if ch == nil {
		return a.reject(types.ReasonNoChallenge)
	}
	for _, jid := range []string{ch.ChallengerJID, ch.OpponentJID} {
		busy, err := m.openChallenge(a, jid, storage.PvpActive)
		if err != nil {
			return err
		}
		if busy != nil {
			return a.reject(types.ReasonMatchInProgress)
		}
	}

	players, err := a.tx.LockPlayers(ch.ChallengerJID, ch.OpponentJID)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}
	if players[ch.OpponentJID] == nil {
		return a.reject(types.ReasonNotStarted)
	}
	if players[ch.ChallengerJID] == nil {
		return a.reject(types.ReasonTargetNotFound)
	}
	fighters, reason, err := m.lockFighters(a, ch.ChallengerJID, ch.OpponentJID)
	if err != nil {
		return err
	}
	if reason != "" {
		return a.reject(reason)
	}

	m.startMatch(a, ch, fighters)
	if err := a.tx.SaveChallenge(ch); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	if err := m.leaveQueue(a, ch.ChallengerJID, ch.OpponentJID); err != nil {
		return err
	}
	a.res.Payload = pvpView(ch)
	return nil
}

func (m *Manager) handlePvpReject(a *action) error {
	ch, err := m.pendingChallenge(a)
	if err != nil {
		return err
	}
	if ch == nil {
		return a.reject(types.ReasonNoChallenge)
	}
	ch.Status = storage.PvpRejected
	if err := a.tx.SaveChallenge(ch); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	a.log("Challenge declined.")
	a.res.Payload = pvpView(ch)
	return nil
}

func (m *Manager) handlePvpAttack(a *action) error {
	ch, err := m.openChallenge(a, a.owner(), storage.PvpActive)
	if err != nil {
		return err
	}
	if ch == nil {
		return a.reject(types.ReasonNoChallenge)
	}
	if ch.TurnJID != a.owner() {
		a.res.Payload = pvpView(ch)
		return a.reject(types.ReasonNotYourTurn)
	}

	other := ch.Other(a.owner())
	players, err := a.tx.LockPlayers(a.owner(), other)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}

	hit := m.combat.ResolveSingleAttack(ch.Snapshot[a.owner()], ch.Snapshot[other], a.req.Args.Slot)
	if !hit.ValidMove {
		return a.reject(types.ReasonInvalidMove)
	}
	a.log(hit.Log...)

	snap := make(map[string]types.Combatant, 2)
	snap[a.owner()] = hit.Attacker
	snap[other] = hit.Defender
	ch.Snapshot = snap
	ch.Turn++
	ch.TurnJID = other
	ch.ExpiresAt = a.now.Add(config.Seconds(m.cfg.PvpTTLSeconds))

	switch {
	case hit.Defender.Fainted():
		ch.WinnerJID = a.owner()
	case hit.Attacker.Fainted():
		ch.WinnerJID = other
	}
	if ch.WinnerJID != "" {
		if err := m.finishMatch(a, ch, players); err != nil {
			return err
		}
	}

	if err := a.tx.SaveChallenge(ch); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	a.res.Payload = pvpView(ch)
	return nil
}

// finishMatch pays the winner, credits the creature that fought with
// experience and one evolution check, counts the win toward missions and
// records the rivalry
func (m *Manager) finishMatch(a *action, ch *storage.PvpChallenge, players map[string]*storage.Player) error {
	ch.Status = storage.PvpFinished
	ch.TurnJID = ""

	rc := m.cfg.Rewards
	if winner := players[ch.WinnerJID]; winner != nil {
		rw := &types.Rewards{}
		m.grantPlayer(winner, rc.PvpMoney, rc.PvpPlayerXP, rw)

		// The match ran on a snapshot; the creature may since have been
		// traded away, in which case only the player is paid.
		c, err := a.tx.LockCreature(winner.JID, ch.Snapshot[winner.JID].CreatureID)
		if err != nil {
			return fmt.Errorf("failed to lock winning creature: %w", err)
		}
		var evo *types.EvolutionOutcome
		if c != nil {
			grantCreature(c, rc.PvpCreatureXP, rw)
			evo = m.tryLevelEvolution(a, c)
			if err := a.tx.SaveCreature(c); err != nil {
				return fmt.Errorf("failed to save winning creature: %w", err)
			}
		}
		if err := m.advanceMission(a, winner, missionWin, rw); err != nil {
			return err
		}
		if err := a.tx.SavePlayer(winner); err != nil {
			return fmt.Errorf("failed to pay winner: %w", err)
		}
		if winner.JID == a.owner() {
			a.res.Rewards = rw
			a.res.Evolution = evo
		}
		a.logf("%s wins the match and $%d!", winner.Name, rw.Money)
	}

	link, err := a.tx.EnsureSocialLink(ch.ChallengerJID, ch.OpponentJID)
	if err != nil {
		return fmt.Errorf("failed to load social link: %w", err)
	}
	link.Rivalry += m.cfg.Social.RivalryPerMatch
	if err := a.tx.SaveSocialLink(link); err != nil {
		return fmt.Errorf("failed to save social link: %w", err)
	}
	return nil
}

// queuedOpponent locks the longest-waiting live queue entry whose owner is not
// already playing a match. Entries of busy players are cancelled on the way.
func (m *Manager) queuedOpponent(a *action) (*storage.PvpQueueEntry, error) {
	for {
		opp, err := a.tx.LockQueuedOpponent(a.chat(), a.owner(), a.now)
		if err != nil {
			return nil, fmt.Errorf("failed to lock queue: %w", err)
		}
		if opp == nil {
			return nil, nil
		}
		busy, err := m.openChallenge(a, opp.OwnerJID, storage.PvpActive)
		if err != nil {
			return nil, err
		}
		if busy == nil {
			return opp, nil
		}
		opp.Status = storage.QueueCancelled
		if err := a.tx.SaveQueueEntry(opp); err != nil {
			return nil, fmt.Errorf("failed to drop queue entry: %w", err)
		}
	}
}

func (m *Manager) handlePvpQueue(a *action) error {
	own, err := a.tx.LockQueueEntry(a.chat(), a.owner())
	if err != nil {
		return fmt.Errorf("failed to lock queue entry: %w", err)
	}
	if own != nil && own.Status == storage.QueueQueued && a.now.Before(own.ExpiresAt) {
		a.res.Payload = types.QueueView{Status: own.Status, Expires: own.ExpiresAt}
		return a.reject(types.ReasonAlreadyQueued)
	}
	busy, err := m.openChallenge(a, a.owner(), storage.PvpActive)
	if err != nil {
		return err
	}
	if busy != nil {
		return a.reject(types.ReasonMatchInProgress)
	}
	opp, err := m.queuedOpponent(a)
	if err != nil {
		return err
	}

	jids := []string{a.owner()}
	if opp != nil {
		jids = append(jids, opp.OwnerJID)
	}
	players, err := a.tx.LockPlayers(jids...)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}
	if players[a.owner()] == nil {
		return a.reject(types.ReasonNotStarted)
	}

	var fighters map[string]*storage.Creature
	if opp != nil {
		var reason string
		if fighters, reason, err = m.lockFighters(a, jids...); err != nil {
			return err
		}
		if reason != "" || players[opp.OwnerJID] == nil {
			// Either side may be the one that cannot fight; only keep the
			// waiting entry when the acting player is the problem.
			if _, ownReason, err := m.lockFighters(a, a.owner()); err != nil {
				return err
			} else if ownReason != "" {
				return a.reject(ownReason)
			}
			opp.Status = storage.QueueCancelled
			if err := a.tx.SaveQueueEntry(opp); err != nil {
				return fmt.Errorf("failed to drop queue entry: %w", err)
			}
			opp, fighters = nil, nil
		}
	} else {
		if _, reason, err := m.lockFighters(a, a.owner()); err != nil {
			return err
		} else if reason != "" {
			return a.reject(reason)
		}
	}

	expires := a.now.Add(config.Seconds(m.cfg.QueueTTLSeconds))
	if own == nil {
		own = &storage.PvpQueueEntry{ID: uuid.NewString(), ChatID: a.chat(), OwnerJID: a.owner()}
	}
	own.CreatedAt = a.now
	own.ExpiresAt = expires
	own.MatchID = ""

	if opp == nil {
		own.Status = storage.QueueQueued
		if err := a.tx.SaveQueueEntry(own); err != nil {
			return fmt.Errorf("failed to save queue entry: %w", err)
		}
		a.log("Waiting for an opponent...")
		a.res.Payload = types.QueueView{Status: own.Status, Expires: own.ExpiresAt}
		return nil
	}

	ch := &storage.PvpChallenge{
		ID:            uuid.NewString(),
		ChatID:        a.chat(),
		ChallengerJID: opp.OwnerJID,
		OpponentJID:   a.owner(),
	}
	m.startMatch(a, ch, fighters)
	if err := a.tx.CreateChallenge(ch); err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	opp.Status, opp.MatchID = storage.QueueMatched, ch.ID
	own.Status, own.MatchID = storage.QueueMatched, ch.ID
	if err := a.tx.SaveQueueEntry(opp); err != nil {
		return fmt.Errorf("failed to save queue entry: %w", err)
	}
	if err := a.tx.SaveQueueEntry(own); err != nil {
		return fmt.Errorf("failed to save queue entry: %w", err)
	}

	a.logf("Matched against %s!", players[opp.OwnerJID].Name)
	a.res.Payload = types.QueueView{Status: own.Status, Match: pvpView(ch), Expires: ch.ExpiresAt}
	return nil
}

func (m *Manager) handlePvpCancelQueue(a *action) error {
	own, err := a.tx.LockQueueEntry(a.chat(), a.owner())
	if err != nil {
		return fmt.Errorf("failed to lock queue entry: %w", err)
	}
	if own == nil || own.Status != storage.QueueQueued {
		return a.reject(types.ReasonNotQueued)
	}

	own.Status = storage.QueueCancelled
	if !a.now.Before(own.ExpiresAt) {
		own.Status = storage.QueueExpired
	}
	if err := a.tx.SaveQueueEntry(own); err != nil {
		return fmt.Errorf("failed to save queue entry: %w", err)
	}
	if own.Status == storage.QueueExpired {
		return a.reject(types.ReasonNotQueued)
	}
	a.log("Left the queue.")
	a.res.Payload = types.QueueView{Status: own.Status, Expires: own.ExpiresAt}
	return nil
}
