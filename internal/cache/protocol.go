package cache

// Simple JSON protocol for cache daemon over a Unix domain socket.
// Requests and responses alternate on one connection, one JSON value each.

const (
	OpGet    = "get"
	OpPut    = "put"
	OpIncr   = "incr"
	OpDelete = "delete"
)

type Request struct {
	Op        string `json:"op"`
	Key       string `json:"key"`
	Value     []byte `json:"value,omitempty"`
	TTLMillis int64  `json:"ttl_ms,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Value []byte `json:"value,omitempty"`
	Int   int64  `json:"int,omitempty"`
	Error string `json:"error,omitempty"`
}
