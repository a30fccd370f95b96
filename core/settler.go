package core

import (
	"errors"
	"fmt"
	"math/big"

	"meltwater/native/auction"
	"meltwater/native/bank"
	"meltwater/native/pool"
)

var errUnsupportedEffect = errors.New("controller: unsupported effect")

// poolSettler backs the virtual pool: input is burned from the trader and
// output minted to them.
type poolSettler struct {
	h2o bank.Ledger
	ice bank.Ledger
}

func (s poolSettler) ledger(asset pool.Asset) bank.Ledger {
	if asset == pool.AssetB {
		return s.ice
	}
	return s.h2o
}

func (s poolSettler) Take(asset pool.Asset, from [20]byte, amount *big.Int) error {
	return s.ledger(asset).Burn(from, amount)
}

func (s poolSettler) Give(asset pool.Asset, to [20]byte, amount *big.Int) error {
	return s.ledger(asset).Mint(to, amount)
}

// auctionSettler maps auction effects onto custody for Coin and onto the H2O
// ledger for units, with escrowed units parked on the module account.
type auctionSettler struct {
	h2o     bank.Ledger
	custody bank.Custody
	module  [20]byte
}

func (s auctionSettler) Lock(asset auction.Asset, from [20]byte, amount *big.Int) error {
	if asset == auction.AssetCoin {
		return s.custody.Deposit(from, amount)
	}
	return s.h2o.Transfer(from, s.module, amount)
}

func (s auctionSettler) Refund(asset auction.Asset, to [20]byte, amount *big.Int) error {
	if asset == auction.AssetCoin {
		return s.custody.TrySend(to, amount)
	}
	return s.h2o.Transfer(s.module, to, amount)
}

func (s auctionSettler) Mint(asset auction.Asset, to [20]byte, amount *big.Int) error {
	if asset != auction.AssetUnit {
		return fmt.Errorf("%w: mint %s", errUnsupportedEffect, asset)
	}
	return s.h2o.Mint(to, amount)
}

func (s auctionSettler) Burn(asset auction.Asset, amount *big.Int) error {
	if asset != auction.AssetUnit {
		return fmt.Errorf("%w: burn %s", errUnsupportedEffect, asset)
	}
	return s.h2o.Burn(s.module, amount)
}

func (s auctionSettler) Pay(asset auction.Asset, to [20]byte, amount *big.Int) error {
	if asset == auction.AssetCoin {
		return s.custody.Send(to, amount)
	}
	return s.h2o.Transfer(s.module, to, amount)
}
