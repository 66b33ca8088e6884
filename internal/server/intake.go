package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/sniff"
)

const (
	filePart    = "file"
	sniffLength = 512
	defaultName = "blob"
)

var errOversized = errors.New("file content discarded: size limit exceeded")

// oversizedFile stands in for a part larger than the widget limit. Only its
// metadata is kept so validation reports it as a size error.
type oversizedFile struct {
	name    string
	typ     string
	size    int64
	modTime time.Time
}

func (o oversizedFile) Name() string            { return o.name }
func (o oversizedFile) Size() int64             { return o.size }
func (o oversizedFile) Type() string            { return o.typ }
func (o oversizedFile) LastModified() time.Time { return o.modTime }

func (o oversizedFile) Open() (io.ReadCloser, error) {
	return nil, errOversized
}

// readFiles streams the multipart body and turns every "file" part into a
// candidate. Parts are buffered up to limit+1 bytes; anything beyond is
// drained and only counted.
func readFiles(r *http.Request, limit int64, now time.Time) ([]model.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("expecting multipart form: %w", err)
	}

	var files []model.File
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		if part.FormName() != filePart {
			part.Close()
			continue
		}

		f, err := readPart(part, limit, now)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, nil
}

func readPart(part *multipart.Part, limit int64, now time.Time) (model.File, error) {
	defer part.Close()

	name := part.FileName()
	if name == "" {
		name = defaultName
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(part, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	data := buf.Bytes()
	typ := sniff.Normalize(part.Header.Get("Content-Type"), name, data[:min(len(data), sniffLength)])

	if n <= limit {
		return model.NewMemoryFile(name, typ, now, data), nil
	}

	rest, err := io.Copy(io.Discard, part)
	if err != nil {
		return nil, fmt.Errorf("drain %s: %w", name, err)
	}

	return oversizedFile{
		name:    name,
		typ:     typ,
		size:    n + rest,
		modTime: now,
	}, nil
}
