package redirect

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/negotiate"
)

// ErrNoLocation is returned by Interpret when the response carried no
// Content-Location header, i.e. it is not a redirect instruction.
var ErrNoLocation = errors.New("redirect: no Content-Location")

// Instruction tells a client navigator how to follow a snapshot redirect.
type Instruction struct {
	// Back asks the navigator to go back in its history.
	Back bool
	// URL is the structured target for route replacement.
	URL *location.URL
	// As is the displayed location: URL.AsPath, else the Content-Location
	// value.
	As string
	// CrossOrigin is set when URL names a host or protocol. The navigator
	// must leave the app with a full navigation instead of routing.
	CrossOrigin bool
}

// Interpret reads a snapshot redirect response. contentLocation is the
// Content-Location header value, body the raw response body and contentType
// its Content-Type.
func Interpret(contentLocation string, body []byte, contentType string) (Instruction, error) {
	if contentLocation == "" {
		return Instruction{}, ErrNoLocation
	}
	if string(bytes.TrimSpace(body)) == BackSentinel || isQuotedBack(body) {
		return Instruction{Back: true, As: contentLocation}, nil
	}

	u := &location.URL{}
	codec, ok := negotiate.CodecForContentType(contentType)
	if !ok {
		codec = negotiate.JSON
	}
	if len(bytes.TrimSpace(body)) == 0 || codec.Unmarshal(body, u) != nil {
		// Without a usable body the header alone still names the target.
		u = location.Parse(contentLocation)
	}
	if u.Back {
		return Instruction{Back: true, URL: u, As: contentLocation}, nil
	}

	as := u.AsPath
	if as == "" {
		as = contentLocation
	}
	return Instruction{
		URL:         u,
		As:          as,
		CrossOrigin: u.IsAbsolute(),
	}, nil
}

func isQuotedBack(body []byte) bool {
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return false
	}
	return s == BackSentinel
}

// String describes the instruction for logs.
func (i Instruction) String() string {
	switch {
	case i.Back:
		return "back"
	case i.CrossOrigin:
		return fmt.Sprintf("assign %s", i.As)
	default:
		return fmt.Sprintf("replace %s", i.As)
	}
}
