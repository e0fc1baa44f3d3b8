// Package datauri parses and builds base64 data URIs of the form
// data:<mimetype>;base64,<data>.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed = errors.New("malformed data URI")
	ErrNotBase64 = errors.New("data URI is not base64 encoded")
	ErrNotImage  = errors.New("data URI does not contain an image")
)

const DefaultImageMIME = "image/png"

type DataURI struct {
	MIMEType string
	Data     []byte
}

// Parse decodes a base64 data URI. Parameters other than ";base64"
// (for example ";charset=utf-8") are ignored.
func Parse(s string) (*DataURI, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, ErrMalformed
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrMalformed
	}

	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	typ, subtype, ok := strings.Cut(mime, "/")
	if !ok || strings.TrimSpace(typ) == "" || strings.TrimSpace(subtype) == "" {
		return nil, ErrMalformed
	}

	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, ErrNotBase64
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	return &DataURI{MIMEType: mime, Data: data}, nil
}

// ParseImage is Parse restricted to image/* payloads.
func ParseImage(s string) (*DataURI, error) {
	d, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if !d.IsImage() {
		return nil, ErrNotImage
	}
	return d, nil
}

// Encode builds a base64 data URI. An empty MIME type falls back to image/png.
func Encode(mime string, data []byte) string {
	if mime == "" {
		mime = DefaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (d *DataURI) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

func (d *DataURI) String() string {
	return Encode(d.MIMEType, d.Data)
}

// Format returns the MIME subtype, e.g. "png" for image/png.
func (d *DataURI) Format() string {
	_, sub, _ := strings.Cut(d.MIMEType, "/")
	return sub
}
