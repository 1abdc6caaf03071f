package types

import (
	"encoding/json"

	"github.com/tidwall/sjson"
)

type body struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Coordinates *Point `json:"coordinates,omitempty"`
	To          *Point `json:"to,omitempty"`
}

// Body renders r as an HTTP response body. It returns nil for ShapeEmpty.
func Body(r Result) []byte {
	var b body
	switch {
	case r.Err != nil:
		b = body{Status: "error", Message: r.Err.Error()}
	case r.Shape == ShapeEmpty:
		return nil
	case r.Shape == ShapeAck:
		b = body{Status: "success"}
	default:
		b = body{Status: "success", Message: r.Message, Coordinates: r.Coordinates, To: r.To}
	}
	data, _ := json.Marshal(b)
	return data
}

// Reply renders r as a stream reply tagged with the request id. It returns
// nil when nothing should be sent back.
func Reply(id string, r Result) []byte {
	data := Body(r)
	if data == nil || id == "" {
		return data
	}
	if tagged, err := sjson.SetBytes(data, "id", id); err == nil {
		return tagged
	}
	return data
}

// ErrorReply renders a transport-level failure (for example an undecodable
// frame) in the same shape as a dispatch error.
func ErrorReply(id string, err error) []byte {
	return Reply(id, Result{Err: err})
}
