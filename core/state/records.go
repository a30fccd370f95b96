package state

import (
	"fmt"
	"math/big"

	"meltwater/native/accrual"
)

var (
	poolKey           = []byte("pool/reserves")
	anchorSampleKey   = []byte("anchor/sample")
	anchorWindowKey   = []byte("anchor/window")
	rewardRateKey     = []byte("rewards/rate")
	rewardPrefix      = "rewards/account/"
	positionPrefix    = "vesting/position/"
	lastPositionKey   = []byte("vesting/last-id")
	creatorPrefix     = "vesting/creator/"
	beneficiaryPrefix = "vesting/beneficiary/"
	auctionKey        = []byte("auction/state")
	pausesKey         = []byte("params/pauses")
	ledgerPrefix      = "bank/ledger/"
	vaultKey          = []byte("bank/vault")
	genesisKey        = []byte("meta/genesis")
	clockKey          = []byte("meta/clock")
)

func accountKey(prefix string, addr [20]byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return buf
}

func idKey(prefix string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", prefix, id))
}

type rateRecord struct {
	Num   *big.Int
	Denom *big.Int
}

func encodeRate(r *big.Rat) (rateRecord, error) {
	if r == nil {
		return rateRecord{Num: big.NewInt(0), Denom: big.NewInt(1)}, nil
	}
	if r.Sign() < 0 {
		return rateRecord{}, fmt.Errorf("state: negative rate %s", r)
	}
	return rateRecord{Num: new(big.Int).Set(r.Num()), Denom: new(big.Int).Set(r.Denom())}, nil
}

func (r rateRecord) decode() *big.Rat {
	if r.Denom == nil || r.Denom.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(r.Num, r.Denom)
}

type checkpointRecord struct {
	Principal   *big.Int
	Rate        rateRecord
	LastSettled uint64
}

func encodeCheckpoint(cp accrual.Checkpoint) (checkpointRecord, error) {
	rate, err := encodeRate(cp.RatePerSecond)
	if err != nil {
		return checkpointRecord{}, err
	}
	last, err := toUint(cp.LastSettled)
	if err != nil {
		return checkpointRecord{}, err
	}
	return checkpointRecord{Principal: nonNil(cp.Principal), Rate: rate, LastSettled: last}, nil
}

func (r checkpointRecord) decode() accrual.Checkpoint {
	return accrual.Checkpoint{Principal: nonNil(r.Principal), RatePerSecond: r.Rate.decode(), LastSettled: int64(r.LastSettled)}
}

type rewardAccountRecord struct {
	Address    [20]byte
	Checkpoint checkpointRecord
	Pending    *big.Int
}

type positionRecord struct {
	ID          uint64
	Creator     [20]byte
	Beneficiary [20]byte
	Principal   *big.Int
	Start       uint64
	End         uint64
	Checkpoint  checkpointRecord
	Redeemed    bool
}

type sampleRecord struct {
	Price     *big.Int
	SampledAt uint64
}

type auctionRecord struct {
	Active        bool
	Kind          uint8
	InitiatedAt   uint64
	EscrowAmount  *big.Int
	LeadingBid    *big.Int
	LeadingBidder [20]byte
}

func toUint(ts int64) (uint64, error) {
	if ts < 0 {
		return 0, fmt.Errorf("state: negative timestamp %d", ts)
	}
	return uint64(ts), nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
