// Package preview builds data URI thumbnails for image candidates.
package preview

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"github.com/dharsanguruparan/dropzone/internal/model"
)

// IsImage reports whether the media type is rendered as a thumbnail.
func IsImage(typ string) bool {
	return strings.HasPrefix(typ, "image/")
}

// Generate returns a base64 data URI of the file content. Non-image files
// return false without being read, and read failures are swallowed: a missing
// preview never fails an upload.
func Generate(f model.File) (string, bool) {
	if !IsImage(f.Type()) {
		return "", false
	}

	data, err := readAll(f)
	if err != nil {
		return "", false
	}

	uri, err := DataURI(f.Type(), data)
	if err != nil {
		return "", false
	}

	return uri, true
}

// DataURI encodes data the way a browser FileReader.readAsDataURL does.
// Media type parameters are kept.
func DataURI(typ string, data []byte) (string, error) {
	mediaType, params, err := mime.ParseMediaType(typ)
	if err != nil {
		return "", fmt.Errorf("parse media type %q: %w", typ, err)
	}
	if !strings.Contains(mediaType, "/") {
		return "", fmt.Errorf("media type %q has no subtype", typ)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, params[k])
	}

	return dataurl.New(data, mediaType, pairs...).String(), nil
}

// Decode splits a data URI back into its media type, without parameters,
// and payload. Both base64 and percent-encoded payloads are accepted.
func Decode(uri string) (typ string, data []byte, err error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	return du.ContentType(), du.Data, nil
}

func readAll(f model.File) (_ []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rc.Close()) }()

	return io.ReadAll(rc)
}
