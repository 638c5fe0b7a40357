// Package currencies holds the common currency codes the providers and
// scanner work with. Any 3-letter code is accepted at the API boundary;
// these are the defaults the CLI and providers target.
package currencies

import "github.com/stablewatch/premiums/storage/types"

var (
	// Stablecoin assets
	USDT types.Currency = "USDT"
	USDC types.Currency = "USDC"

	// Reference fiat
	USD types.Currency = "USD"

	// Fiat markets monitored by default
	MXN types.Currency = "MXN"
	BRL types.Currency = "BRL"
	ARS types.Currency = "ARS"
	COP types.Currency = "COP"
	VES types.Currency = "VES"
)
