package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/datachainlab/crossdomain-relayer/core"
	"github.com/datachainlab/crossdomain-relayer/log"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

type MessageView struct {
	Hash              string    `json:"hash"`
	Nonce             string    `json:"nonce"`
	Sender            string    `json:"sender"`
	Target            string    `json:"target"`
	Value             string    `json:"value"`
	GasLimit          string    `json:"gas_limit"`
	Data              string    `json:"data"`
	SourceBlockNumber uint64    `json:"source_block_number"`
	SourceTxHash      string    `json:"source_tx_hash"`
	SourceTimestamp   time.Time `json:"source_timestamp"`
	Status            string    `json:"status"`
}

// handleHealth reports liveness. It returns 200 whenever the process serves
// requests, regardless of backlog size; callers must inspect the pending
// count to detect degradation.
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:  "up",
		Pending: s.store.Count(core.StatusPending),
	})
}

func (s *APIServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	records := s.store.All()
	views := make([]MessageView, 0, len(records))
	for _, rec := range records {
		views = append(views, newMessageView(rec))
	}
	writeJSON(w, views)
}

func newMessageView(rec core.MessageRecord) MessageView {
	return MessageView{
		Hash:              rec.Hash.Hex(),
		Nonce:             rec.Nonce.String(),
		Sender:            rec.Sender.Hex(),
		Target:            rec.Target.Hex(),
		Value:             rec.Value.String(),
		GasLimit:          rec.GasLimit.String(),
		Data:              hexutil.Encode(rec.Data),
		SourceBlockNumber: rec.SourceBlockNumber,
		SourceTxHash:      rec.SourceTxHash.Hex(),
		SourceTimestamp:   rec.SourceTimestamp,
		Status:            rec.Status.String(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().WithModule("server").Error("failed to encode response", err)
	}
}
