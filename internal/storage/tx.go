package storage

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tx is one open transaction. Lock helpers return nil, nil when the row does
// not exist.
type Tx struct {
	db     *gorm.DB
	driver string
}

// DB exposes the transaction handle for ad hoc queries
func (t *Tx) DB() *gorm.DB {
	return t.db
}

func (t *Tx) locked() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockFirst[T any](t *Tx, order string, query string, args ...any) (*T, error) {
	var row T
	q := t.locked().Where(query, args...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ensure inserts row unless its key already exists, then locks and returns
// the stored version.
func ensure[T any](t *Tx, row *T, query string, args ...any) (*T, error) {
	if err := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	got, err := lockFirst[T](t, "", query, args...)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, fmt.Errorf("row vanished after insert")
	}
	return got, nil
}

// Players

// LockPlayer locks the player row
func (t *Tx) LockPlayer(jid string) (*Player, error) {
	return lockFirst[Player](t, "", "jid = ?", jid)
}

// LockPlayers locks several players in ascending identity order. Missing
// players are absent from the result.
func (t *Tx) LockPlayers(jids ...string) (map[string]*Player, error) {
	sorted := slices.Clone(jids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make(map[string]*Player, len(sorted))
	for _, jid := range sorted {
		p, err := t.LockPlayer(jid)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[jid] = p
		}
	}
	return out, nil
}

// CreatePlayer inserts p and reports whether it was new
func (t *Tx) CreatePlayer(p *Player) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SavePlayer writes every column of p
func (t *Tx) SavePlayer(p *Player) error {
	return t.db.Save(p).Error
}

// Creatures

// LockActiveCreature locks the owner's active creature
func (t *Tx) LockActiveCreature(owner string) (*Creature, error) {
	return lockFirst[Creature](t, "id", "owner_jid = ? AND active = ?", owner, true)
}

// LockCreature locks one creature of owner
func (t *Tx) LockCreature(owner string, id uint64) (*Creature, error) {
	return lockFirst[Creature](t, "", "id = ? AND owner_jid = ?", id, owner)
}

// ListCreatures returns the owner's creatures in capture order
func (t *Tx) ListCreatures(owner string) ([]Creature, error) {
	var out []Creature
	err := t.db.Where("owner_jid = ?", owner).Order("id").Find(&out).Error
	return out, err
}

// CountCreatures counts the owner's creatures
func (t *Tx) CountCreatures(owner string) (int64, error) {
	var n int64
	err := t.db.Model(&Creature{}).Where("owner_jid = ?", owner).Count(&n).Error
	return n, err
}

// CreateCreature inserts c and fills its id
func (t *Tx) CreateCreature(c *Creature) error {
	return t.db.Create(c).Error
}

// SaveCreature writes every column of c
func (t *Tx) SaveCreature(c *Creature) error {
	return t.db.Save(c).Error
}

// SetActiveCreature makes id the only active creature of owner
func (t *Tx) SetActiveCreature(owner string, id uint64) error {
	if err := t.db.Model(&Creature{}).
		Where("owner_jid = ? AND active = ? AND id <> ?", owner, true, id).
		Update("active", false).Error; err != nil {
		return err
	}
	res := t.db.Model(&Creature{}).
		Where("owner_jid = ? AND id = ?", owner, id).
		Update("active", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("creature %d not owned by %s", id, owner)
	}
	return nil
}

// Inventory

// LockInventoryItem locks one inventory entry
func (t *Tx) LockInventoryItem(owner, key string) (*InventoryItem, error) {
	return lockFirst[InventoryItem](t, "", "owner_jid = ? AND item_key = ?", owner, key)
}

// ListInventory returns item counts by key
func (t *Tx) ListInventory(owner string) (map[string]int, error) {
	var rows []InventoryItem
	if err := t.db.Where("owner_jid = ?", owner).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.ItemKey] = r.Quantity
	}
	return out, nil
}

// AddItem increments the owner's count of key
func (t *Tx) AddItem(owner, key string, qty int) error {
	if qty <= 0 {
		return nil
	}
	row := InventoryItem{OwnerJID: owner, ItemKey: key, Quantity: qty}
	return t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_jid"}, {Name: "item_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("inventory_items.quantity + ?", qty),
			"updated_at": t.db.NowFunc(),
		}),
	}).Create(&row).Error
}

// ConsumeItem removes qty of key. It reports false and changes nothing when
// the owner holds fewer.
func (t *Tx) ConsumeItem(owner, key string, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	item, err := t.LockInventoryItem(owner, key)
	if err != nil {
		return false, err
	}
	if item == nil || item.Quantity < qty {
		return false, nil
	}
	item.Quantity -= qty
	if item.Quantity == 0 {
		err = t.db.Delete(item).Error
	} else {
		err = t.db.Save(item).Error
	}
	return err == nil, err
}

// Battles

// LockBattle locks the owner's battle in a chat
func (t *Tx) LockBattle(chatID, owner string) (*Battle, error) {
	return lockFirst[Battle](t, "", "chat_id = ? AND owner_jid = ?", chatID, owner)
}

func (t *Tx) CreateBattle(b *Battle) error {
	return t.db.Create(b).Error
}

func (t *Tx) SaveBattle(b *Battle) error {
	return t.db.Save(b).Error
}

func (t *Tx) DeleteBattle(b *Battle) error {
	return t.db.Delete(b).Error
}

// Raids

// LockRaid locks the chat's raid
func (t *Tx) LockRaid(chatID string) (*Raid, error) {
	return lockFirst[Raid](t, "", "chat_id = ?", chatID)
}

// CreateRaid inserts r unless the chat already has a raid and reports
// whether it was inserted
func (t *Tx) CreateRaid(r *Raid) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *Tx) SaveRaid(r *Raid) error {
	return t.db.Save(r).Error
}

// DeleteRaid removes the raid with its participants
func (t *Tx) DeleteRaid(r *Raid) error {
	if err := t.db.Where("raid_id = ?", r.ID).Delete(&RaidParticipant{}).Error; err != nil {
		return err
	}
	return t.db.Delete(r).Error
}

// EnsureRaidParticipant returns the locked participant row of owner
func (t *Tx) EnsureRaidParticipant(raid *Raid, owner string) (*RaidParticipant, error) {
	row := &RaidParticipant{RaidID: raid.ID, ChatID: raid.ChatID, OwnerJID: owner}
	return ensure(t, row, "raid_id = ? AND owner_jid = ?", raid.ID, owner)
}

func (t *Tx) SaveRaidParticipant(p *RaidParticipant) error {
	return t.db.Save(p).Error
}

// ListRaidParticipants returns participants by damage, highest first
func (t *Tx) ListRaidParticipants(raidID string) ([]RaidParticipant, error) {
	var out []RaidParticipant
	err := t.db.Where("raid_id = ?", raidID).Order("damage DESC, owner_jid").Find(&out).Error
	return out, err
}

// PvP

// GetChallenge reads a challenge without locking it
func (t *Tx) GetChallenge(id string) (*PvpChallenge, error) {
	var c PvpChallenge
	if err := t.db.Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// LockChallenge locks a challenge by id
func (t *Tx) LockChallenge(id string) (*PvpChallenge, error) {
	return lockFirst[PvpChallenge](t, "", "id = ?", id)
}

// LockOpenChallenge locks the newest challenge of jid in chat with one of the
// given statuses
func (t *Tx) LockOpenChallenge(chatID, jid string, statuses ...string) (*PvpChallenge, error) {
	return lockFirst[PvpChallenge](t, "created_at DESC",
		"chat_id = ? AND (challenger_jid = ? OR opponent_jid = ?) AND status IN ?",
		chatID, jid, jid, statuses)
}

// LockPendingChallengeFor locks the newest pending challenge addressed to opponent
func (t *Tx) LockPendingChallengeFor(chatID, opponent string) (*PvpChallenge, error) {
	return lockFirst[PvpChallenge](t, "created_at DESC",
		"chat_id = ? AND opponent_jid = ? AND status = ?", chatID, opponent, PvpPending)
}

func (t *Tx) CreateChallenge(c *PvpChallenge) error {
	return t.db.Create(c).Error
}

func (t *Tx) SaveChallenge(c *PvpChallenge) error {
	return t.db.Save(c).Error
}

// Matchmaking queue

// LockQueueEntry locks the owner's queue row in chat
func (t *Tx) LockQueueEntry(chatID, owner string) (*PvpQueueEntry, error) {
	return lockFirst[PvpQueueEntry](t, "", "chat_id = ? AND owner_jid = ?", chatID, owner)
}

// LockQueuedOpponent locks the longest waiting live entry of anyone but owner
func (t *Tx) LockQueuedOpponent(chatID, owner string, now time.Time) (*PvpQueueEntry, error) {
	return lockFirst[PvpQueueEntry](t, "created_at, id",
		"chat_id = ? AND owner_jid <> ? AND status = ? AND expires_at > ?",
		chatID, owner, QueueQueued, now)
}

func (t *Tx) CreateQueueEntry(e *PvpQueueEntry) error {
	return t.db.Create(e).Error
}

func (t *Tx) SaveQueueEntry(e *PvpQueueEntry) error {
	return t.db.Save(e).Error
}

// Missions

// EnsureMission returns the locked mission row of owner, creating it for the
// given period keys when missing
func (t *Tx) EnsureMission(owner, dayKey, weekKey string) (*MissionProgress, error) {
	row := &MissionProgress{OwnerJID: owner, DayKey: dayKey, WeekKey: weekKey}
	return ensure(t, row, "owner_jid = ?", owner)
}

func (t *Tx) SaveMission(m *MissionProgress) error {
	return t.db.Save(m).Error
}

// Co-op

// EnsureCoopEvent returns the locked weekly event of chat
func (t *Tx) EnsureCoopEvent(chatID, weekKey string, target int) (*CoopEvent, error) {
	row := &CoopEvent{ChatID: chatID, WeekKey: weekKey, Target: target}
	return ensure(t, row, "chat_id = ? AND week_key = ?", chatID, weekKey)
}

// LockCoopEvent locks the weekly event of chat
func (t *Tx) LockCoopEvent(chatID, weekKey string) (*CoopEvent, error) {
	return lockFirst[CoopEvent](t, "", "chat_id = ? AND week_key = ?", chatID, weekKey)
}

func (t *Tx) SaveCoopEvent(e *CoopEvent) error {
	return t.db.Save(e).Error
}

// EnsureCoopContribution returns the locked contribution row of owner
func (t *Tx) EnsureCoopContribution(eventID uint64, owner string) (*CoopContribution, error) {
	row := &CoopContribution{EventID: eventID, OwnerJID: owner}
	return ensure(t, row, "event_id = ? AND owner_jid = ?", eventID, owner)
}

// LockCoopContribution locks the contribution row of owner
func (t *Tx) LockCoopContribution(eventID uint64, owner string) (*CoopContribution, error) {
	return lockFirst[CoopContribution](t, "", "event_id = ? AND owner_jid = ?", eventID, owner)
}

func (t *Tx) SaveCoopContribution(c *CoopContribution) error {
	return t.db.Save(c).Error
}

// Trades

// LockTrade locks an offer by id
func (t *Tx) LockTrade(id string) (*TradeOffer, error) {
	return lockFirst[TradeOffer](t, "", "id = ?", id)
}

// LockPendingTradeFor locks the newest pending offer addressed to buyer in chat
func (t *Tx) LockPendingTradeFor(chatID, buyer string) (*TradeOffer, error) {
	return lockFirst[TradeOffer](t, "created_at DESC",
		"chat_id = ? AND buyer_jid = ? AND status = ?", chatID, buyer, TradePending)
}

// LockPendingTradeBySeller locks the newest pending offer made by seller in chat
func (t *Tx) LockPendingTradeBySeller(chatID, seller string) (*TradeOffer, error) {
	return lockFirst[TradeOffer](t, "created_at DESC",
		"chat_id = ? AND seller_jid = ? AND status = ?", chatID, seller, TradePending)
}

// HasPendingTrade reports whether the creature is already on offer
func (t *Tx) HasPendingTrade(creatureID uint64, now time.Time) (bool, error) {
	var n int64
	err := t.db.Model(&TradeOffer{}).
		Where("creature_id = ? AND status = ? AND expires_at > ?", creatureID, TradePending, now).
		Count(&n).Error
	return n > 0, err
}

func (t *Tx) CreateTrade(o *TradeOffer) error {
	return t.db.Create(o).Error
}

func (t *Tx) SaveTrade(o *TradeOffer) error {
	return t.db.Save(o).Error
}

// Social

// PairKey orders two identities the way social links are keyed
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// EnsureSocialLink returns the locked link between a and b
func (t *Tx) EnsureSocialLink(a, b string) (*SocialLink, error) {
	lo, hi := PairKey(a, b)
	row := &SocialLink{PlayerA: lo, PlayerB: hi}
	return ensure(t, row, "player_a = ? AND player_b = ?", lo, hi)
}

func (t *Tx) SaveSocialLink(l *SocialLink) error {
	return t.db.Save(l).Error
}

// EnsureKarma returns the locked karma profile of owner
func (t *Tx) EnsureKarma(owner string) (*KarmaProfile, error) {
	row := &KarmaProfile{OwnerJID: owner}
	return ensure(t, row, "owner_jid = ?", owner)
}

func (t *Tx) SaveKarma(k *KarmaProfile) error {
	return t.db.Save(k).Error
}
