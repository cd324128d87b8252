// Package registry backs the asset and agent registries with fixed lists
// loaded from configuration.
package registry

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	domain "nftcredit-backend/internal/domain/registry"
)

var (
	_ domain.AssetRegistry = (*Static)(nil)
	_ domain.AgentRegistry = (*Static)(nil)
)

type Static struct {
	mu     sync.RWMutex
	assets map[common.Address]struct{}
	agents map[common.Address]struct{}
}

func NewStatic(assets, agents []common.Address) *Static {
	s := &Static{
		assets: make(map[common.Address]struct{}, len(assets)),
		agents: make(map[common.Address]struct{}, len(agents)),
	}
	for _, a := range assets {
		s.assets[a] = struct{}{}
	}
	for _, a := range agents {
		s.agents[a] = struct{}{}
	}
	return s
}

func (s *Static) IsEligibleCollateral(currency common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[currency]
	return ok
}

func (s *Static) IsAuthorizedAgent(account common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[account]
	return ok
}

// AddAgent authorizes account at runtime.
func (s *Static) AddAgent(account common.Address) {
	s.mu.Lock()
	s.agents[account] = struct{}{}
	s.mu.Unlock()
}

func (s *Static) RemoveAgent(account common.Address) {
	s.mu.Lock()
	delete(s.agents, account)
	s.mu.Unlock()
}
