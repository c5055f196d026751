package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	TypeInit  = "init"
	TypeError = "error"
)

// Request is an inbound message.
type Request struct {
	Src  string
	Dest string
	Type string

	// MsgID is set if the sender expects a reply.
	MsgID     *int64
	InReplyTo *int64

	// Body contains every body field, including 'type', 'msg_id' and
	// 'in_reply_to'.
	Body map[string]json.RawMessage
}

// HasField returns whether the body contains a non-null field with the given
// name.
func (r *Request) HasField(name string) bool {
	raw, ok := r.Body[name]
	return ok && !isNull(raw)
}

// Field decodes the body field with the given name into v.
//
// Returns a protocol error if the field is missing, null or can't be decoded
// into v.
func (r *Request) Field(name string, v any) error {
	raw, ok := r.Body[name]
	if !ok || isNull(raw) {
		return Errorf(CodeProtocolError, "%s: missing field: %s", r.Type, name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return Errorf(CodeProtocolError, "%s: invalid field: %s: %s", r.Type, name, err)
	}
	return nil
}

// Response is an outbound message, either a reply to a request or a message
// initiated by the node.
type Response struct {
	Src  string
	Dest string
	Type string

	MsgID     *int64
	InReplyTo *int64

	// Body contains the payload fields. 'type', 'msg_id' and 'in_reply_to'
	// are added when encoded so must not be included.
	Body map[string]any
}

// NewReply creates a reply to the given request with type '<type>_ok'.
func NewReply(req *Request, body map[string]any) *Response {
	return &Response{
		Src:       req.Dest,
		Dest:      req.Src,
		Type:      req.Type + "_ok",
		InReplyTo: req.MsgID,
		Body:      body,
	}
}

// NewErrorReply creates an 'error' reply to the given request.
func NewErrorReply(req *Request, err *Error) *Response {
	return &Response{
		Src:       req.Dest,
		Dest:      req.Src,
		Type:      TypeError,
		InReplyTo: req.MsgID,
		Body: map[string]any{
			"code": int(err.Code),
			"text": err.Text,
		},
	}
}

// NewMessage creates a message to dest that doesn't expect a reply.
func NewMessage(dest string, msgType string, body map[string]any) *Response {
	return &Response{
		Dest: dest,
		Type: msgType,
		Body: body,
	}
}

type inboundEnvelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

type outboundEnvelope struct {
	Src  string         `json:"src"`
	Dest string         `json:"dest"`
	Body map[string]any `json:"body"`
}

// Decode parses a single JSON envelope.
//
// If the envelope is invalid a protocol error is returned. The returned
// request is still non-nil when enough of the envelope was parsed to reply to
// the sender, so the caller can report the error.
func Decode(b []byte) (*Request, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, Errorf(CodeProtocolError, "invalid envelope: %s", err)
	}
	if env.Src == "" {
		return nil, Errorf(CodeProtocolError, "invalid envelope: missing src")
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(env.Body, &body); err != nil || body == nil {
		return nil, Errorf(CodeProtocolError, "invalid envelope: body is not an object")
	}

	req := &Request{
		Src:  env.Src,
		Dest: env.Dest,
		Body: body,
	}
	if raw, ok := body["msg_id"]; ok && !isNull(raw) {
		var msgID int64
		if err := json.Unmarshal(raw, &msgID); err != nil {
			return nil, Errorf(CodeProtocolError, "invalid envelope: invalid msg_id")
		}
		req.MsgID = &msgID
	}
	if raw, ok := body["in_reply_to"]; ok && !isNull(raw) {
		var inReplyTo int64
		if err := json.Unmarshal(raw, &inReplyTo); err != nil {
			return req, Errorf(CodeProtocolError, "invalid envelope: invalid in_reply_to")
		}
		req.InReplyTo = &inReplyTo
	}

	if env.Dest == "" {
		return req, Errorf(CodeProtocolError, "invalid envelope: missing dest")
	}
	raw, ok := body["type"]
	if !ok {
		return req, Errorf(CodeProtocolError, "invalid envelope: missing type")
	}
	if err := json.Unmarshal(raw, &req.Type); err != nil || req.Type == "" {
		return req, Errorf(CodeProtocolError, "invalid envelope: invalid type")
	}
	return req, nil
}

// Encode encodes the response as a single line JSON envelope, excluding the
// trailing newline.
func Encode(resp *Response) ([]byte, error) {
	body := make(map[string]any, len(resp.Body)+3)
	for k, v := range resp.Body {
		body[k] = v
	}
	body["type"] = resp.Type
	if resp.MsgID != nil {
		body["msg_id"] = *resp.MsgID
	}
	if resp.InReplyTo != nil {
		body["in_reply_to"] = *resp.InReplyTo
	}

	b, err := json.Marshal(&outboundEnvelope{
		Src:  resp.Src,
		Dest: resp.Dest,
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
