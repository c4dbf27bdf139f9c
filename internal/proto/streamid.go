package proto

// Stream identifier classification. Identifier allocation is the connection
// layer's job; these predicates only classify values already on the wire.
// For every id in [0, MaxStreamID] exactly one of the three holds.

// IsConnectionLevel reports whether id addresses the connection itself
// rather than a stream.
func IsConnectionLevel(id uint32) bool { return id == 0 }

// IsClientInitiated reports whether id belongs to a client-initiated
// stream. Clients allocate odd identifiers.
func IsClientInitiated(id uint32) bool { return id != 0 && id&1 == 1 }

// IsServerInitiated reports whether id belongs to a server-initiated
// stream. Servers allocate even identifiers.
func IsServerInitiated(id uint32) bool { return id != 0 && id&1 == 0 }
