package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/frotalog/registro/internal/common/cnst"
)

// RawRecord is one row on the wire: a flat object with a mandatory string id
// plus entity-specific fields. Unknown fields pass through untouched.
type RawRecord map[string]any

// TableChanges groups one table's rows into the three sync buckets. Deleted
// rows travel as bare ids.
type TableChanges struct {
	Created []RawRecord `json:"created"`
	Updated []RawRecord `json:"updated"`
	Deleted []string    `json:"deleted"`
}

// Changes is the full change set exchanged in one sync direction, keyed by
// table name.
type Changes map[string]TableChanges

// PullResponse is the body of GET /sync/pull.
type PullResponse struct {
	Changes   Changes `json:"changes"`
	Timestamp int64   `json:"timestamp"`
}

// PushRequest is the body of POST /sync/push.
type PushRequest struct {
	Changes      Changes `json:"changes" binding:"required"`
	LastPulledAt int64   `json:"lastPulledAt"`
}

// PushResponse reports per-row rejections of a push. The field name follows
// the sync protocol the mobile client speaks.
type PushResponse struct {
	RejectedIDs []string `json:"experimentalRejectedIds,omitempty"`
}

// ID returns the row's opaque id, or "" if absent or not a string.
func (r RawRecord) ID() string {
	s, _ := r["id"].(string)
	return s
}

// String returns the named field as a string, or "" if absent.
func (r RawRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int64 returns the named field as an int64. JSON decoding yields float64 for
// numbers, so all numeric kinds are accepted.
func (r RawRecord) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Bool returns the named field as a bool. Numeric 0/1 is accepted because the
// embedded client store serializes booleans that way.
func (r RawRecord) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

// Time returns the named field interpreted as epoch milliseconds.
func (r RawRecord) Time(key string) (time.Time, bool) {
	ms, ok := r.Int64(key)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Millis converts a timestamp to the wire's epoch-millisecond representation.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// TipoToServer translates the client-side category vocabulary to the server's.
// The mapping is a fixed bijection; anything else is an error.
func TipoToServer(tipo string) (cnst.TipoServidor, error) {
	switch cnst.TipoCliente(tipo) {
	case cnst.TipoEntrada:
		return cnst.TipoCompra, nil
	case cnst.TipoSaida:
		return cnst.TipoVenda, nil
	default:
		return "", fmt.Errorf("unknown tipo %q", tipo)
	}
}

// TipoToClient is the inverse of TipoToServer.
func TipoToClient(tipo string) (cnst.TipoCliente, error) {
	switch cnst.TipoServidor(tipo) {
	case cnst.TipoCompra:
		return cnst.TipoEntrada, nil
	case cnst.TipoVenda:
		return cnst.TipoSaida, nil
	default:
		return "", fmt.Errorf("unknown tipo %q", tipo)
	}
}
