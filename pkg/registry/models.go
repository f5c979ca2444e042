package registry

import (
	"time"

	"github.com/dmitrymomot/tenantmodels/pkg/schema"
	"github.com/dmitrymomot/tenantmodels/pkg/tenantconn"
)

// ModelMeta is the cached description of one materialized model. It carries
// just enough to rebuild a handle given a live connection and the in-memory
// catalogue, never the handle itself.
type ModelMeta struct {
	Name       string `json:"name"`
	Collection string `json:"collection"`
	Registered bool   `json:"registered"`
}

// Entry is the tier-independent envelope cached per tenant after a
// successful materialization.
type Entry struct {
	TenantID  string               `json:"tenant_id"`
	CreatedAt time.Time            `json:"created_at"`
	Models    map[string]ModelMeta `json:"models"`
}

// Model is a ready-to-use data-model handle: a logical schema bound to one
// tenant's live connection. Handles are cheap to rebuild and never cached
// across processes; only their metadata is.
type Model struct {
	Name       string
	Collection string
	Schema     schema.Definition

	conn *tenantconn.Connection
}

// Connection returns the tenant connection this handle is bound to. CRUD
// callers reach the driver through it:
//
//	db := m.Connection().Conn().(*tenantconn.MongoConn).Database()
//	db.Collection(m.Collection).Find(ctx, filter)
func (m *Model) Connection() *tenantconn.Connection {
	return m.conn
}
