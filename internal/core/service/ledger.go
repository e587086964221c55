package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
)

// AuditLedger keeps a local hash chain of notable device events (ticks,
// actuator actions, errors). Blocks accumulate until a successful server
// upload drops them. Safe for use from the quartz upload job and the control
// loop concurrently.
type AuditLedger struct {
	mu     sync.Mutex
	blocks []domain.LedgerBlock
	nowFn  func() time.Time
}

func NewAuditLedger() *AuditLedger {
	return &AuditLedger{nowFn: time.Now}
}

// Append adds a block chained to the previous one. Marshalling failures fall
// back to the Go-syntax representation of the payload; the chain must never
// reject an event.
func (l *AuditLedger) Append(eventType string, data any) domain.LedgerBlock {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := "0"
	if n := len(l.blocks); n > 0 {
		prevHash = l.blocks[n-1].Hash
	}
	block := domain.LedgerBlock{
		Timestamp:    l.nowFn().Unix(),
		EventType:    eventType,
		Data:         data,
		PreviousHash: prevHash,
		Hash:         hashBlock(data, prevHash),
	}
	l.blocks = append(l.blocks, block)
	return block
}

// Blocks returns a copy of the pending chain.
func (l *AuditLedger) Blocks() []domain.LedgerBlock {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LedgerBlock, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Drop removes the first n blocks after a successful upload. Blocks appended
// while the upload was in flight are preserved.
func (l *AuditLedger) Drop(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n >= len(l.blocks) {
		l.blocks = nil
		return
	}
	l.blocks = l.blocks[n:]
}

func (l *AuditLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

func hashBlock(data any, prevHash string) string {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(fmt.Sprintf("%#v", data))
	}
	sum := sha256.Sum256(append(payload, []byte(prevHash)...))
	return hex.EncodeToString(sum[:])
}
