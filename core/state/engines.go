package state

import (
	"math/big"
	"time"

	"meltwater/native/accrual"
	"meltwater/native/anchor"
	"meltwater/native/auction"
	nativecommon "meltwater/native/common"
	"meltwater/native/pool"
	"meltwater/native/rebase"
	"meltwater/native/vesting"
)

// --- pool ---

type poolRecord struct {
	ReserveA *big.Int
	ReserveB *big.Int
}

func (m *Manager) PoolGet() (*pool.State, error) {
	var rec poolRecord
	ok, err := m.KVGet(poolKey, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &pool.State{ReserveA: nonNil(rec.ReserveA), ReserveB: nonNil(rec.ReserveB)}, nil
}

func (m *Manager) PoolPut(s *pool.State) error {
	return m.KVPut(poolKey, poolRecord{ReserveA: nonNil(s.ReserveA), ReserveB: nonNil(s.ReserveB)})
}

// --- anchor ---

func (m *Manager) AnchorGet() (*anchor.Sample, error) {
	var rec sampleRecord
	ok, err := m.KVGet(anchorSampleKey, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &anchor.Sample{Price: nonNil(rec.Price), SampledAt: int64(rec.SampledAt)}, nil
}

func (m *Manager) AnchorPut(s *anchor.Sample) error {
	at, err := toUint(s.SampledAt)
	if err != nil {
		return err
	}
	return m.KVPut(anchorSampleKey, sampleRecord{Price: nonNil(s.Price), SampledAt: at})
}

func (m *Manager) AnchorWindowGet() (time.Duration, error) {
	var seconds uint64
	ok, err := m.KVGet(anchorWindowKey, &seconds)
	if err != nil {
		return 0, err
	}
	if !ok {
		return anchor.DefaultWindow, nil
	}
	return time.Duration(seconds) * time.Second, nil
}

func (m *Manager) AnchorWindowPut(d time.Duration) error {
	return m.KVPut(anchorWindowKey, uint64(d/time.Second))
}

// --- rewards ---

func (m *Manager) RewardAccountGet(addr [20]byte) (*accrual.Account, bool, error) {
	var rec rewardAccountRecord
	ok, err := m.KVGet(accountKey(rewardPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &accrual.Account{Address: rec.Address, Checkpoint: rec.Checkpoint.decode(), Pending: nonNil(rec.Pending)}, true, nil
}

func (m *Manager) RewardAccountPut(account *accrual.Account) error {
	cp, err := encodeCheckpoint(account.Checkpoint)
	if err != nil {
		return err
	}
	return m.KVPut(accountKey(rewardPrefix, account.Address), rewardAccountRecord{
		Address:    account.Address,
		Checkpoint: cp,
		Pending:    nonNil(account.Pending),
	})
}

func (m *Manager) RewardRateGet() (*big.Rat, error) {
	var rec rateRecord
	ok, err := m.KVGet(rewardRateKey, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return rec.decode(), nil
}

func (m *Manager) RewardRatePut(r *big.Rat) error {
	rec, err := encodeRate(r)
	if err != nil {
		return err
	}
	return m.KVPut(rewardRateKey, rec)
}

// --- vesting ---

func (m *Manager) VestingPositionGet(id uint64) (*vesting.Position, bool, error) {
	var rec positionRecord
	ok, err := m.KVGet(idKey(positionPrefix, id), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &vesting.Position{
		ID:          rec.ID,
		Creator:     rec.Creator,
		Beneficiary: rec.Beneficiary,
		Principal:   nonNil(rec.Principal),
		Start:       int64(rec.Start),
		End:         int64(rec.End),
		Checkpoint:  rec.Checkpoint.decode(),
		Redeemed:    rec.Redeemed,
	}, true, nil
}

func (m *Manager) VestingPositionPut(p *vesting.Position) error {
	cp, err := encodeCheckpoint(p.Checkpoint)
	if err != nil {
		return err
	}
	start, err := toUint(p.Start)
	if err != nil {
		return err
	}
	end, err := toUint(p.End)
	if err != nil {
		return err
	}
	return m.KVPut(idKey(positionPrefix, p.ID), positionRecord{
		ID:          p.ID,
		Creator:     p.Creator,
		Beneficiary: p.Beneficiary,
		Principal:   nonNil(p.Principal),
		Start:       start,
		End:         end,
		Checkpoint:  cp,
		Redeemed:    p.Redeemed,
	})
}

func (m *Manager) VestingLastID() (uint64, error) {
	var id uint64
	if _, err := m.KVGet(lastPositionKey, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *Manager) VestingSetLastID(id uint64) error {
	return m.KVPut(lastPositionKey, id)
}

func (m *Manager) appendIndex(key []byte, id uint64) error {
	var ids []uint64
	if _, err := m.KVGet(key, &ids); err != nil {
		return err
	}
	return m.KVPut(key, append(ids, id))
}

func (m *Manager) indexAt(key []byte, index uint64) (uint64, bool, error) {
	var ids []uint64
	if _, err := m.KVGet(key, &ids); err != nil {
		return 0, false, err
	}
	if index >= uint64(len(ids)) {
		return 0, false, nil
	}
	return ids[index], true, nil
}

func (m *Manager) indexLen(key []byte) (uint64, error) {
	var ids []uint64
	if _, err := m.KVGet(key, &ids); err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

func (m *Manager) VestingRecord(creator, beneficiary [20]byte, id uint64) error {
	if err := m.appendIndex(accountKey(creatorPrefix, creator), id); err != nil {
		return err
	}
	return m.appendIndex(accountKey(beneficiaryPrefix, beneficiary), id)
}

func (m *Manager) VestingCreatorCount(creator [20]byte) (uint64, error) {
	return m.indexLen(accountKey(creatorPrefix, creator))
}

func (m *Manager) VestingCreatorPositionAt(creator [20]byte, index uint64) (uint64, bool, error) {
	return m.indexAt(accountKey(creatorPrefix, creator), index)
}

func (m *Manager) VestingBeneficiaryCount(beneficiary [20]byte) (uint64, error) {
	return m.indexLen(accountKey(beneficiaryPrefix, beneficiary))
}

func (m *Manager) VestingBeneficiaryPositionAt(beneficiary [20]byte, index uint64) (uint64, bool, error) {
	return m.indexAt(accountKey(beneficiaryPrefix, beneficiary), index)
}

// --- auction ---

func (m *Manager) AuctionGet() (auction.State, error) {
	var rec auctionRecord
	ok, err := m.KVGet(auctionKey, &rec)
	if err != nil {
		return auction.State{}, err
	}
	if !ok || !rec.Active {
		return auction.Idle(), nil
	}
	return auction.Active(auction.Round{
		Kind:          rebase.Kind(rec.Kind),
		InitiatedAt:   int64(rec.InitiatedAt),
		EscrowAmount:  nonNil(rec.EscrowAmount),
		LeadingBid:    nonNil(rec.LeadingBid),
		LeadingBidder: rec.LeadingBidder,
	}), nil
}

func (m *Manager) AuctionPut(s auction.State) error {
	round, active := s.Round()
	if !active {
		return m.KVPut(auctionKey, auctionRecord{EscrowAmount: big.NewInt(0), LeadingBid: big.NewInt(0)})
	}
	at, err := toUint(round.InitiatedAt)
	if err != nil {
		return err
	}
	return m.KVPut(auctionKey, auctionRecord{
		Active:        true,
		Kind:          uint8(round.Kind),
		InitiatedAt:   at,
		EscrowAmount:  nonNil(round.EscrowAmount),
		LeadingBid:    nonNil(round.LeadingBid),
		LeadingBidder: round.LeadingBidder,
	})
}

// --- pauses ---

// IsPaused reports the module's pause switch. Unreadable state counts as
// paused.
func (m *Manager) IsPaused(module string) bool {
	pauses, err := m.pauses()
	if err != nil {
		return true
	}
	return pauses.IsPaused(module)
}

// PausedModules lists the modules whose switch is on.
func (m *Manager) PausedModules() ([]string, error) {
	pauses, err := m.pauses()
	if err != nil {
		return nil, err
	}
	return pauses.Modules(), nil
}

// SetPaused toggles the module's pause switch.
func (m *Manager) SetPaused(module string, paused bool) error {
	pauses, err := m.pauses()
	if err != nil {
		return err
	}
	pauses.Set(module, paused)
	return m.KVPut(pausesKey, pauses.Modules())
}

func (m *Manager) pauses() (nativecommon.PauseSet, error) {
	var modules []string
	if _, err := m.KVGet(pausesKey, &modules); err != nil {
		return nil, err
	}
	pauses := nativecommon.PauseSet{}
	for _, name := range modules {
		pauses.Set(name, true)
	}
	return pauses, nil
}
