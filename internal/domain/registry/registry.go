package registry

import "github.com/ethereum/go-ethereum/common"

// AssetRegistry answers whether a currency may be used by a loan.
type AssetRegistry interface {
	IsEligibleCollateral(currency common.Address) bool
}

// AgentRegistry answers whether an account may relay collateral or settle sales.
type AgentRegistry interface {
	IsAuthorizedAgent(account common.Address) bool
}
