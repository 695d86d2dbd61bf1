package negotiate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecFor(t *testing.T) {
	cases := []struct {
		accept string
		want   Codec
	}{
		{"", JSON},
		{"application/json, */*;q=0.8", JSON},
		{"application/x-msgpack, application/json;q=0.9", MsgPack},
		{"application/json, application/x-msgpack", JSON},
		{"text/html", JSON},
		{"application/msgpack", MsgPack},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.accept != "" {
			r.Header.Set("Accept", tc.accept)
		}
		assert.Equal(t, tc.want, CodecFor(r), tc.accept)
	}
}

func TestCodecForContentType(t *testing.T) {
	c, ok := CodecForContentType("application/json; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, JSON, c)

	c, ok = CodecForContentType(ContentTypeMsgPack)
	require.True(t, ok)
	assert.Equal(t, MsgPack, c)

	_, ok = CodecForContentType("text/plain")
	assert.False(t, ok)
	_, ok = CodecForContentType("")
	assert.False(t, ok)
}

func TestMsgPackRoundTripState(t *testing.T) {
	state := map[string]any{"title": "hello world", "homepage": "/"}
	data, err := MsgPack.Marshal(state)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, MsgPack.Unmarshal(data, &got))
	assert.Equal(t, state, got)
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Write(rec, JSON, http.StatusTeapot, map[string]string{"message": "short"}))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"short"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/vnd.custom+json")
	require.NoError(t, Write(rec, JSON, http.StatusOK, 1))
	assert.Equal(t, "application/vnd.custom+json", rec.Header().Get("Content-Type"))
}
