// Package tenantconn manages one long-lived storage connection per tenant.
//
// Every tenant gets its own MongoDB client scoped to an isolated database
// named {prefix}{tenantID} on a shared endpoint. Connections are created
// lazily on first access, reused on every later access, and reclaimed by a
// periodic idle sweep so inactive tenants do not pin resources.
//
// # Lifecycle
//
// A connection moves through an explicit state machine: connecting while the
// dial is in flight, then connected or error, and finally disconnected when
// closed. Concurrent callers for the same tenant during a dial share its
// outcome instead of dialing again; a connection in a terminal state is
// replaced by a fresh one on the next access.
//
// Failures opening a connection are always surfaced to the caller, wrapped as
// ErrConnectionTimeout or ErrConnectionFailed. Close failures anywhere are
// logged, never escalated. The manager performs no retries of its own beyond
// what the driver does internally.
//
// # Usage
//
//	cfg := tenantconn.Config{ConnectionURL: "mongodb://localhost:27017"}
//	mgr, err := tenantconn.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mgr.Close(context.Background())
//
//	conn, err := mgr.Get(ctx, "acme")
//	if err != nil {
//		// tenant storage unavailable
//	}
//	db := conn.Conn().(*tenantconn.MongoConn).Database()
//
// Tests substitute the transport through WithDialer, so nothing in this
// package requires a running MongoDB.
package tenantconn
