package negotiate

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types produced by the snapshot codecs.
const (
	ContentTypeJSON    = "application/json; charset=utf-8"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Codec encodes snapshot bodies.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return ContentTypeMsgPack }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

var (
	// JSON is the default snapshot codec.
	JSON Codec = jsonCodec{}
	// MsgPack encodes snapshots as MessagePack.
	MsgPack Codec = msgpackCodec{}
)

// CodecFor picks the codec for a response to r. MessagePack is chosen only
// when the client lists it in Accept ahead of JSON; everything else gets JSON.
func CodecFor(r *http.Request) Codec {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "application/x-msgpack", "application/msgpack":
			return MsgPack
		case "application/json":
			return JSON
		}
	}
	return JSON
}

// CodecForContentType returns the codec that produced a response with the
// given Content-Type, and false when the type is not a snapshot type.
func CodecForContentType(contentType string) (Codec, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	switch mt {
	case "application/json":
		return JSON, true
	case "application/x-msgpack", "application/msgpack":
		return MsgPack, true
	default:
		return nil, false
	}
}

// Write encodes v with c and writes it with status. The Content-Type is set
// unless the handler already chose one.
func Write(w http.ResponseWriter, c Codec, status int, v any) error {
	data, err := c.Marshal(v)
	if err != nil {
		return err
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", c.ContentType())
	}
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
