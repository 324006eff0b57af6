package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
)

// pairPlayers validates a target argument and locks both players in order
func (m *Manager) pairPlayers(a *action) (self, target *storage.Player, err error) {
	jid := a.req.Args.Target
	if jid == "" {
		a.reject(types.ReasonTargetNotFound)
		return nil, nil, nil
	}
	if jid == a.owner() {
		a.reject(types.ReasonSelfTarget)
		return nil, nil, nil
	}
	players, err := a.tx.LockPlayers(a.owner(), jid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock players: %w", err)
	}
	if players[a.owner()] == nil {
		a.reject(types.ReasonNotStarted)
		return nil, nil, nil
	}
	if players[jid] == nil {
		a.reject(types.ReasonTargetNotFound)
		return nil, nil, nil
	}
	return players[a.owner()], players[jid], nil
}

func (m *Manager) handleTradeOffer(a *action) error {
	if a.req.Args.Price <= 0 {
		return a.reject(types.ReasonInvalidPrice)
	}
	seller, buyer, err := m.pairPlayers(a)
	if seller == nil {
		return err
	}

	c, err := a.tx.LockCreature(seller.JID, a.req.Args.CreatureID)
	if err != nil {
		return fmt.Errorf("failed to lock creature: %w", err)
	}
	if c == nil {
		return a.reject(types.ReasonCreatureNotFound)
	}
	if c.Active {
		return a.reject(types.ReasonCreatureActive)
	}
	offered, err := a.tx.HasPendingTrade(c.ID, a.now)
	if err != nil {
		return fmt.Errorf("failed to check offers: %w", err)
	}
	if offered {
		return a.reject(types.ReasonAlreadyOffered)
	}

	o := &storage.TradeOffer{
		ID:         uuid.NewString(),
		ChatID:     a.chat(),
		SellerJID:  seller.JID,
		BuyerJID:   buyer.JID,
		CreatureID: c.ID,
		Price:      a.req.Args.Price,
		Status:     storage.TradePending,
		ExpiresAt:  a.now.Add(config.Seconds(m.cfg.TradeTTLSeconds)),
	}
	if err := a.tx.CreateTrade(o); err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	a.logf("%s offers %s to %s for $%d.", seller.Name, c.Nickname, buyer.Name, o.Price)
	a.res.Payload = tradeView(o)
	return nil
}

// liveOffer returns o unless it has expired, in which case it is marked so
func (m *Manager) liveOffer(a *action, o *storage.TradeOffer) (*storage.TradeOffer, error) {
	if o == nil || o.Status != storage.TradePending || o.ChatID != a.chat() {
		return nil, nil
	}
	if a.now.Before(o.ExpiresAt) {
		return o, nil
	}
	o.Status = storage.TradeExpired
	if err := a.tx.SaveTrade(o); err != nil {
		return nil, fmt.Errorf("failed to expire offer: %w", err)
	}
	return nil, nil
}

// lockOffer locks the offer named by id, or the newest pending one found by
// each of the lookups in turn
func (m *Manager) lockOffer(a *action, lookups ...func(chatID, jid string) (*storage.TradeOffer, error)) (*storage.TradeOffer, error) {
	if id := a.req.Args.ID; id != "" {
		o, err := a.tx.LockTrade(id)
		if err != nil {
			return nil, fmt.Errorf("failed to lock offer: %w", err)
		}
		if o != nil && o.SellerJID != a.owner() && o.BuyerJID != a.owner() {
			return nil, nil
		}
		return m.liveOffer(a, o)
	}
	for _, lookup := range lookups {
		o, err := lookup(a.chat(), a.owner())
		if err != nil {
			return nil, fmt.Errorf("failed to lock offer: %w", err)
		}
		if o, err = m.liveOffer(a, o); o != nil || err != nil {
			return o, err
		}
	}
	return nil, nil
}

func (m *Manager) handleTradeAccept(a *action) error {
	o, err := m.lockOffer(a, a.tx.LockPendingTradeFor)
	if err != nil {
		return err
	}
	if o == nil || o.BuyerJID != a.owner() {
		return a.reject(types.ReasonNoOffer)
	}

	players, err := a.tx.LockPlayers(o.SellerJID, o.BuyerJID)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}
	buyer, seller := players[o.BuyerJID], players[o.SellerJID]
	if buyer == nil {
		return a.reject(types.ReasonNotStarted)
	}
	if seller == nil {
		return a.reject(types.ReasonNoOffer)
	}
	if buyer.Money < o.Price {
		a.res.Payload = tradeView(o)
		return a.reject(types.ReasonInsufficientFunds)
	}

	c, err := a.tx.LockCreature(seller.JID, o.CreatureID)
	if err != nil {
		return fmt.Errorf("failed to lock creature: %w", err)
	}
	if c == nil {
		o.Status = storage.TradeCancelled
		if err := a.tx.SaveTrade(o); err != nil {
			return fmt.Errorf("failed to cancel offer: %w", err)
		}
		return a.reject(types.ReasonNoOffer)
	}
	if c.Active {
		return a.reject(types.ReasonCreatureActive)
	}
	buyerActive, err := a.tx.LockActiveCreature(buyer.JID)
	if err != nil {
		return fmt.Errorf("failed to lock active creature: %w", err)
	}

	buyer.Money -= o.Price
	seller.Money += o.Price
	c.OwnerJID = buyer.JID
	c.Active = buyerActive == nil
	if target := m.evolutions.ResolveByTrade(a.ctx, c.SpeciesID); target != nil {
		a.res.Evolution = m.applyEvolution(a, c, target)
	}
	o.Status = storage.TradeAccepted

	if err := a.tx.SavePlayer(buyer); err != nil {
		return fmt.Errorf("failed to save buyer: %w", err)
	}
	if err := a.tx.SavePlayer(seller); err != nil {
		return fmt.Errorf("failed to save seller: %w", err)
	}
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to transfer creature: %w", err)
	}
	if err := a.tx.SaveTrade(o); err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}
	if err := m.befriend(a, seller.JID, buyer.JID, m.cfg.Social.FriendshipPerTrade); err != nil {
		return err
	}

	a.res.Rewards = &types.Rewards{Money: -o.Price}
	a.logf("%s now belongs to %s.", c.Nickname, buyer.Name)
	a.res.Payload = tradeView(o)
	return nil
}

func (m *Manager) handleTradeCancel(a *action) error {
	o, err := m.lockOffer(a, a.tx.LockPendingTradeBySeller, a.tx.LockPendingTradeFor)
	if err != nil {
		return err
	}
	if o == nil {
		return a.reject(types.ReasonNoOffer)
	}
	o.Status = storage.TradeCancelled
	if err := a.tx.SaveTrade(o); err != nil {
		return fmt.Errorf("failed to cancel offer: %w", err)
	}
	a.log("Offer cancelled.")
	a.res.Payload = tradeView(o)
	return nil
}

func (m *Manager) befriend(a *action, x, y string, amount int) error {
	if amount == 0 {
		return nil
	}
	link, err := a.tx.EnsureSocialLink(x, y)
	if err != nil {
		return fmt.Errorf("failed to load social link: %w", err)
	}
	link.Friendship += amount
	if err := a.tx.SaveSocialLink(link); err != nil {
		return fmt.Errorf("failed to save social link: %w", err)
	}
	return nil
}

func (m *Manager) handleKarma(a *action) error {
	giver, target, err := m.pairPlayers(a)
	if giver == nil {
		return err
	}

	profiles := make(map[string]*storage.KarmaProfile, 2)
	lo, hi := storage.PairKey(giver.JID, target.JID)
	for _, jid := range []string{lo, hi} {
		kp, err := a.tx.EnsureKarma(jid)
		if err != nil {
			return fmt.Errorf("failed to load karma: %w", err)
		}
		profiles[jid] = kp
	}
	from, to := profiles[giver.JID], profiles[target.JID]

	if cd := config.Seconds(m.cfg.Social.KarmaCooldownSeconds); from.LastGivenAt != nil {
		if next := from.LastGivenAt.Add(cd); a.now.Before(next) {
			a.res.RetryAfter = next.Sub(a.now)
			return a.reject(types.ReasonCooldown)
		}
	}

	now := a.now
	from.Given++
	from.LastGivenAt = &now
	to.Karma++
	if err := a.tx.SaveKarma(from); err != nil {
		return fmt.Errorf("failed to save karma: %w", err)
	}
	if err := a.tx.SaveKarma(to); err != nil {
		return fmt.Errorf("failed to save karma: %w", err)
	}
	if err := m.befriend(a, giver.JID, target.JID, 1); err != nil {
		return err
	}

	a.logf("%s thanked %s.", giver.Name, target.Name)
	a.res.Payload = types.KarmaView{TargetJID: target.JID, Karma: to.Karma}
	return nil
}
