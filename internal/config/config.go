// Package config loads the static member->address table: one
// "<memberId>,<host>,<port>" line per peer, comments and blank lines
// skipped, order preserved.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Peer is one resolved entry of the static table.
type Peer struct {
	ID   string
	Host string
	Port int
}

// Addr renders the peer's dial address as host:port.
func (p Peer) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Table is the ordered member->address mapping loaded from the config file.
type Table struct {
	peers []Peer
	index map[string]int
}

// Load reads the static peer table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	t := &Table{index: make(map[string]int)}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("config: %s:%d: expected 3 comma-separated fields, got %d", path, lineNo, len(parts))
		}
		id := strings.TrimSpace(parts[0])
		host := strings.TrimSpace(parts[1])
		port, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("config: %s:%d: invalid port: %w", path, lineNo, err)
		}
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("config: %s:%d: duplicate member id %q", path, lineNo, id)
		}
		t.index[id] = len(t.peers)
		t.peers = append(t.peers, Peer{ID: id, Host: host, Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if len(t.peers) == 0 {
		return nil, fmt.Errorf("config: %s: no peers defined", path)
	}
	return t, nil
}

// Peers returns the table in file order.
func (t *Table) Peers() []Peer {
	return t.peers
}

// Lookup resolves a member id to its peer entry.
func (t *Table) Lookup(id string) (Peer, bool) {
	i, ok := t.index[id]
	if !ok {
		return Peer{}, false
	}
	return t.peers[i], true
}

// Others returns every peer except the one identified by selfID, in file
// order, for use by the RPC fan-out.
func (t *Table) Others(selfID string) []Peer {
	out := make([]Peer, 0, len(t.peers)-1)
	for _, p := range t.peers {
		if p.ID == selfID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Majority returns floor(N/2)+1 for the current table size.
func (t *Table) Majority() int {
	return len(t.peers)/2 + 1
}

// Size returns the number of peers in the table.
func (t *Table) Size() int {
	return len(t.peers)
}
