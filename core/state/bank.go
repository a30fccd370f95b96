package state

import (
	"math/big"
	"strings"

	"meltwater/native/bank"
)

type vaultRecord struct {
	Wallets []bank.Balance
	Reserve *big.Int
}

// SaveLedger persists an exported ledger under its symbol.
func (m *Manager) SaveLedger(symbol string, balances []bank.Balance) error {
	return m.KVPut([]byte(ledgerPrefix+strings.ToUpper(symbol)), balances)
}

// LoadLedger returns the persisted balances of symbol.
func (m *Manager) LoadLedger(symbol string) ([]bank.Balance, bool, error) {
	var balances []bank.Balance
	ok, err := m.KVGet([]byte(ledgerPrefix+strings.ToUpper(symbol)), &balances)
	return balances, ok, err
}

// SaveVault persists the custody wallets and reserve.
func (m *Manager) SaveVault(wallets []bank.Balance, reserve *big.Int) error {
	return m.KVPut(vaultKey, vaultRecord{Wallets: wallets, Reserve: nonNil(reserve)})
}

// LoadVault returns the persisted custody wallets and reserve.
func (m *Manager) LoadVault() ([]bank.Balance, *big.Int, bool, error) {
	var rec vaultRecord
	ok, err := m.KVGet(vaultKey, &rec)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	return rec.Wallets, nonNil(rec.Reserve), true, nil
}

// GenesisTime returns when the state was initialised.
func (m *Manager) GenesisTime() (int64, bool, error) {
	var ts uint64
	ok, err := m.KVGet(genesisKey, &ts)
	return int64(ts), ok, err
}

// SetGenesisTime marks the state as initialised at ts.
func (m *Manager) SetGenesisTime(ts int64) error {
	v, err := toUint(ts)
	if err != nil {
		return err
	}
	return m.KVPut(genesisKey, v)
}

// ClockTime returns the last persisted engine time.
func (m *Manager) ClockTime() (int64, bool, error) {
	var ts uint64
	ok, err := m.KVGet(clockKey, &ts)
	return int64(ts), ok, err
}

// SetClockTime persists the engine time.
func (m *Manager) SetClockTime(ts int64) error {
	v, err := toUint(ts)
	if err != nil {
		return err
	}
	return m.KVPut(clockKey, v)
}
