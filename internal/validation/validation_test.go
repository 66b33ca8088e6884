package validation_test

import (
	"testing"
	"time"

	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(name, typ string, size int) model.File {
	return model.NewMemoryFile(name, typ, time.Now(), make([]byte, size))
}

func TestValidate_Accepts(t *testing.T) {
	t.Parallel()

	err := validation.Validate(file("a.png", "image/png", 500), []string{"image/png"}, 1000)
	assert.Nil(t, err)
}

func TestValidate_EmptyAcceptedListAcceptsAnyType(t *testing.T) {
	t.Parallel()

	err := validation.Validate(file("a.bin", "application/octet-stream", 10), nil, 1000)
	assert.Nil(t, err)
}

func TestValidate_SizeAtLimitIsAccepted(t *testing.T) {
	t.Parallel()

	err := validation.Validate(file("a.png", "image/png", 1000), []string{"image/png"}, 1000)
	assert.Nil(t, err)
}

func TestValidate_RejectsType(t *testing.T) {
	t.Parallel()

	err := validation.Validate(file("doc.txt", "text/plain", 10), []string{"image/png", "application/pdf"}, 1000)
	require.NotNil(t, err)

	assert.Equal(t, model.ErrorType, err.Kind)
	assert.Equal(t, "doc.txt", err.FileName)
	assert.Equal(t, "File type text/plain is not supported. Supported types: image/png, application/pdf", err.Message)
}

func TestValidate_RejectsSize(t *testing.T) {
	t.Parallel()

	const mb = 1024 * 1024

	err := validation.Validate(file("big.png", "image/png", 3*mb/2), []string{"image/png"}, mb)
	require.NotNil(t, err)

	assert.Equal(t, model.ErrorSize, err.Kind)
	assert.Equal(t, "big.png", err.FileName)
	assert.Equal(t, "File size 1.5 MB exceeds maximum allowed size of 1.0 MB", err.Message)
}

func TestValidate_TypeCheckedBeforeSize(t *testing.T) {
	t.Parallel()

	err := validation.Validate(file("big.txt", "text/plain", 2000), []string{"image/png"}, 1000)
	require.NotNil(t, err)

	assert.Equal(t, model.ErrorType, err.Kind)
}

func TestCountExceeded(t *testing.T) {
	t.Parallel()

	assert.Nil(t, validation.CountExceeded(2, 0, 2))
	assert.Nil(t, validation.CountExceeded(2, 1, 1))

	err := validation.CountExceeded(1, 1, 1)
	require.NotNil(t, err)
	assert.Equal(t, model.ErrorCount, err.Kind)
	assert.Empty(t, err.FileName)
	assert.Equal(t, "Maximum 1 files allowed. Currently have 1 files.", err.Message)
}
