package metadata

import "go.mongodb.org/mongo-driver/bson"

// MemoryDataset is a Dataset held entirely in memory, used for tests and
// for small deployments that don't need Mongo-backed persistence.
type MemoryDataset struct {
	name string
	rows []Row
}

// NewMemoryDataset builds a MemoryDataset from a fixed row set.
func NewMemoryDataset(name string, rows []Row) *MemoryDataset {
	return &MemoryDataset{name: name, rows: rows}
}

func (m *MemoryDataset) Name() string {
	return m.name
}

func (m *MemoryDataset) Rows() []Row {
	return m.rows
}

func (m *MemoryDataset) Marshal() ([]byte, error) {
	return bson.Marshal(m.rows)
}
