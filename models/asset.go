package models

// Asset identifies a ledger asset. AssetNative is the built-in currency;
// any other non-empty symbol is a fungible token.
type Asset string

const AssetNative Asset = "NATIVE"

func (a Asset) IsNative() bool {
	return a == AssetNative
}

func (a Asset) Valid() bool {
	return a != ""
}
