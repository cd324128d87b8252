package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	eth := common.HexToAddress("0xee")
	agent := common.HexToAddress("0xa1")
	other := common.HexToAddress("0xb2")

	s := NewStatic([]common.Address{eth}, []common.Address{agent})
	assert.True(t, s.IsEligibleCollateral(eth))
	assert.False(t, s.IsEligibleCollateral(other))
	assert.True(t, s.IsAuthorizedAgent(agent))
	assert.False(t, s.IsAuthorizedAgent(other))

	s.AddAgent(other)
	assert.True(t, s.IsAuthorizedAgent(other))
	s.RemoveAgent(agent)
	assert.False(t, s.IsAuthorizedAgent(agent))
}
