package service

import (
	"testing"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestLedgerChainsBlocks(t *testing.T) {

	assert := assert.New(t)

	ledger := NewAuditLedger()
	ledger.nowFn = func() time.Time { return time.Unix(1700000000, 0) }

	first := ledger.Append("sensor_data", domain.SensorSnapshot{Temperature: 26.5})
	second := ledger.Append("actuator_action", domain.Action{Actuator: domain.ActuatorPoolHeater, Command: true})

	assert.Equal("0", first.PreviousHash, "genesis block links to 0")
	assert.Equal(first.Hash, second.PreviousHash, "second block links to first")
	assert.NotEmpty(first.Hash, "hash computed")
	assert.NotEqual(first.Hash, second.Hash, "distinct hashes")
	assert.Equal(int64(1700000000), first.Timestamp, "timestamp from clock")
	assert.Equal(2, ledger.Len(), "two pending blocks")
}

func TestLedgerDropAfterUpload(t *testing.T) {

	assert := assert.New(t)

	ledger := NewAuditLedger()
	ledger.Append("sensor_data", 1)
	ledger.Append("sensor_data", 2)

	blocks := ledger.Blocks()
	assert.Len(blocks, 2, "two blocks pending")

	// block appended while the upload was in flight survives the drop
	ledger.Append("sensor_data", 3)
	ledger.Drop(len(blocks))

	remaining := ledger.Blocks()
	if assert.Len(remaining, 1, "in-flight block preserved") {
		assert.Equal(3, remaining[0].Data, "latest block kept")
	}

	ledger.Drop(10)
	assert.Equal(0, ledger.Len(), "over-drop empties the chain")
}

func TestLedgerBlocksReturnsCopy(t *testing.T) {

	assert := assert.New(t)

	ledger := NewAuditLedger()
	ledger.Append("sensor_data", 1)

	blocks := ledger.Blocks()
	blocks[0].Hash = "tampered"

	assert.NotEqual("tampered", ledger.Blocks()[0].Hash, "internal chain untouched")
}

func TestLedgerHashesUnmarshalablePayload(t *testing.T) {

	assert := assert.New(t)

	ledger := NewAuditLedger()
	// channels cannot be marshalled to JSON; the chain must still accept the block
	block := ledger.Append("weird", make(chan int))
	assert.NotEmpty(block.Hash, "hash computed from fallback representation")
	assert.Equal(1, ledger.Len(), "block stored")
}
