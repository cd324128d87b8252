package gateway

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/pkg/money"
)

type SubmitInput struct {
	Caller  common.Address
	Target  string
	Value   money.Amount
	Command multisig.Command
}

type TransactionDTO struct {
	ID            uint64          `json:"id"`
	Submitter     common.Address  `json:"submitter"`
	Target        string          `json:"target"`
	Value         money.Amount    `json:"value"`
	Kind          string          `json:"kind"`
	Command       json.RawMessage `json:"command"`
	Executed      bool            `json:"executed"`
	ExecutedAt    *time.Time      `json:"executed_at,omitempty"`
	Confirmations int64           `json:"confirmations"`
	Threshold     int             `json:"threshold"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toDTO(tx *multisig.Transaction, confirmations int64, threshold int) *TransactionDTO {
	return &TransactionDTO{
		ID:            tx.ID,
		Submitter:     tx.Submitter,
		Target:        tx.Target,
		Value:         tx.Value,
		Kind:          tx.Kind,
		Command:       json.RawMessage(tx.Payload),
		Executed:      tx.Executed,
		ExecutedAt:    tx.ExecutedAt,
		Confirmations: confirmations,
		Threshold:     threshold,
		CreatedAt:     tx.CreatedAt,
	}
}
