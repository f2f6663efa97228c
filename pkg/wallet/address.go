// Package wallet checks that a destination address fits the asset being bought.
package wallet

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ErrInvalidAddress is returned when an address does not match the asset's network
var ErrInvalidAddress = errors.New("invalid wallet address")

// Network identifies the address format of an asset
type Network string

const (
	NetworkBitcoin Network = "bitcoin"
	NetworkEVM     Network = "evm"
	NetworkSolana  Network = "solana"
	NetworkUnknown Network = "unknown"
)

var assetNetworks = map[string]Network{
	"BTC":  NetworkBitcoin,
	"ETH":  NetworkEVM,
	"USDT": NetworkEVM,
	"USDC": NetworkEVM,
	"SOL":  NetworkSolana,
}

// NetworkFor returns the address format used for asset
func NetworkFor(asset string) Network {
	if n, ok := assetNetworks[strings.ToUpper(strings.TrimSpace(asset))]; ok {
		return n
	}
	return NetworkUnknown
}

// Validate reports whether address can receive asset
func Validate(asset, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.Wrap(ErrInvalidAddress, "address is empty")
	}

	switch NetworkFor(asset) {
	case NetworkEVM:
		if !common.IsHexAddress(address) {
			return errors.Wrapf(ErrInvalidAddress, "%s needs a 0x address, got %q", strings.ToUpper(asset), address)
		}
	case NetworkSolana:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return errors.Wrapf(ErrInvalidAddress, "solana address %q: %v", address, err)
		}
	case NetworkBitcoin:
		if err := checkBitcoinAddress(address); err != nil {
			return errors.Wrapf(ErrInvalidAddress, "bitcoin address %q: %v", address, err)
		}
	}

	return nil
}

// checkBitcoinAddress decodes a mainnet P2PKH, P2SH or segwit v0 address,
// verifying its base58check or bech32 checksum
func checkBitcoinAddress(address string) error {
	decoded, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	if err != nil {
		return err
	}
	if !decoded.IsForNet(&chaincfg.MainNetParams) {
		return errors.New("not a mainnet address")
	}
	return nil
}
