package store

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"

	"github.com/heysubinoy/kvs/pkg/kv"
)

const (
	journalNodeID  = raft.ServerID("kvs")
	journalTimeout = 50 * time.Millisecond
	leaderTimeout  = 5 * time.Second
	applyTimeout   = 2 * time.Second
)

const (
	opSet    = "set"
	opRemove = "remove"
)

// RaftCommand represents a set/remove operation applied through the journal.
type RaftCommand struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// RaftStore wraps a MemStore and routes every mutation through a
// single-node raft log. The log, stable store, transport and snapshots
// are all in memory, so the store stays volatile; what it adds is a
// single ordered writer in front of the map.
type RaftStore struct {
	store *MemStore
	raft  *raft.Raft
}

// Compile-time checks.
var (
	_ kv.Store = (*RaftStore)(nil)
	_ raft.FSM = (*RaftStore)(nil)
)

// NewRaftStore bootstraps a one-voter cluster around store and waits
// until it has become leader. logger is handed to raft as is.
func NewRaftStore(store *MemStore, logger hclog.Logger) (*RaftStore, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	conf := raft.DefaultConfig()
	conf.LocalID = journalNodeID
	conf.Logger = logger
	conf.HeartbeatTimeout = journalTimeout
	conf.ElectionTimeout = journalTimeout
	conf.LeaderLeaseTimeout = journalTimeout
	conf.CommitTimeout = 5 * time.Millisecond

	logs := raft.NewInmemStore()
	snaps := raft.NewDiscardSnapshotStore()
	addr, trans := raft.NewInmemTransport("")

	rs := &RaftStore{store: store}

	r, err := raft.NewRaft(conf, rs, logs, logs, snaps, trans)
	if err != nil {
		trans.Close()
		return nil, &kv.Error{Kind: kv.KindIO, Op: "journal", Err: fmt.Errorf("failed to start raft: %w", err)}
	}
	rs.raft = r

	bootstrap := raft.Configuration{
		Servers: []raft.Server{{Suffrage: raft.Voter, ID: conf.LocalID, Address: addr}},
	}
	if err := r.BootstrapCluster(bootstrap).Error(); err != nil {
		rs.Close()
		return nil, &kv.Error{Kind: kv.KindIO, Op: "journal", Err: fmt.Errorf("failed to bootstrap raft: %w", err)}
	}

	if err := rs.waitForLeader(leaderTimeout); err != nil {
		rs.Close()
		return nil, err
	}

	logger.Debug("journal ready", "node", conf.LocalID, "addr", addr)
	return rs, nil
}

func (rs *RaftStore) waitForLeader(timeout time.Duration) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		if rs.raft.State() == raft.Leader {
			return nil
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return &kv.Error{Kind: kv.KindIO, Op: "journal", Err: fmt.Errorf("no leader after %s", timeout)}
		}
	}
}

// GetRaft returns the underlying raft.Raft pointer.
func (rs *RaftStore) GetRaft() *raft.Raft {
	return rs.raft
}

// Apply applies a raft log entry to the local store.
func (rs *RaftStore) Apply(log *raft.Log) interface{} {
	var cmd RaftCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return &kv.Error{Kind: kv.KindCorrupt, Op: "apply", Err: err}
	}

	switch cmd.Op {
	case opSet:
		return rs.store.Set(cmd.Key, cmd.Value)
	case opRemove:
		return rs.store.Remove(cmd.Key)
	default:
		return &kv.Error{Kind: kv.KindCorrupt, Op: "apply", Key: cmd.Key, Err: fmt.Errorf("unknown op %q", cmd.Op)}
	}
}

// Snapshot captures a copy of the map for raft.
func (rs *RaftStore) Snapshot() (raft.FSMSnapshot, error) {
	return &mapSnapshot{data: rs.store.Snapshot()}, nil
}

// Restore replaces the local store with a JSON-encoded snapshot.
func (rs *RaftStore) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var data map[string]string
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return &kv.Error{Kind: kv.KindCorrupt, Op: "restore", Err: err}
	}
	rs.store.Restore(data)
	return nil
}

type mapSnapshot struct {
	data map[string]string
}

func (m *mapSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(m.data); err != nil {
		sink.Cancel()
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return sink.Close()
}

func (m *mapSnapshot) Release() {}

// Set submits a set command to the journal.
func (rs *RaftStore) Set(key, value string) error {
	return rs.submit(RaftCommand{Op: opSet, Key: key, Value: value})
}

// Remove submits a remove command to the journal.
func (rs *RaftStore) Remove(key string) error {
	return rs.submit(RaftCommand{Op: opRemove, Key: key})
}

// Get reads directly from the local store.
func (rs *RaftStore) Get(key string) (string, bool, error) {
	return rs.store.Get(key)
}

func (rs *RaftStore) submit(cmd RaftCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return &kv.Error{Kind: kv.KindOther, Op: cmd.Op, Key: cmd.Key, Err: err}
	}

	f := rs.raft.Apply(data, applyTimeout)
	if err := f.Error(); err != nil {
		return &kv.Error{Kind: kv.KindIO, Op: cmd.Op, Key: cmd.Key, Err: err}
	}
	if resp, ok := f.Response().(error); ok && resp != nil {
		return resp
	}
	return nil
}

// Close shuts raft down. Raft closes the in-memory transport itself.
func (rs *RaftStore) Close() error {
	if err := rs.raft.Shutdown().Error(); err != nil {
		return fmt.Errorf("failed to shut down raft: %w", err)
	}
	return nil
}
