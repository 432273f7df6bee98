package tracing

import (
	"sync"

	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
)

// PacketRecord is the row written for every packet that leaves the network.
type PacketRecord struct {
	ID         string
	Src        string
	Dst        string
	InjectedAt uint64
	EndedAt    uint64
	Hops       int
	BackupHops int
	Delivered  bool
	Reason     string
}

// DBTracer writes one PacketRecord per packet into a data recorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder
	tableName  string

	backupHops map[string]int
}

// NewDBTracer creates a tracer that records into the given table of the
// backend.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	backend datarecording.DataRecorder,
	tableName string,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		tableName:  tableName,
		backupHops: make(map[string]int),
	}

	backend.CreateTable(tableName, PacketRecord{})

	return t
}

// StartPacket does nothing. A record is only written when the packet ends.
func (t *DBTracer) StartPacket(_ *messaging.Packet) {
}

// StepPacket counts the backup hops of a packet.
func (t *DBTracer) StepPacket(p *messaging.Packet, d routing.Decision) {
	if !d.Backup {
		return
	}

	t.mu.Lock()
	t.backupHops[p.ID]++
	t.mu.Unlock()
}

// EndPacket writes the record of the packet.
func (t *DBTracer) EndPacket(p *messaging.Packet, err error) {
	t.mu.Lock()
	backup := t.backupHops[p.ID]
	delete(t.backupHops, p.ID)
	t.mu.Unlock()

	record := PacketRecord{
		ID:         p.ID,
		Src:        p.Src.String(),
		Dst:        p.Dst.String(),
		InjectedAt: uint64(p.InjectedAt),
		EndedAt:    uint64(t.timeTeller.CurrentTime()),
		Hops:       p.Hops(),
		BackupHops: backup,
		Delivered:  err == nil,
	}

	if err != nil {
		record.Reason = err.Error()
	}

	t.backend.InsertData(t.tableName, record)
}
