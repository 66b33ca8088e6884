package model

// ErrorKind tags a FileError.
type ErrorKind string

const (
	ErrorSize    ErrorKind = "size"
	ErrorType    ErrorKind = "type"
	ErrorCount   ErrorKind = "count"
	ErrorGeneral ErrorKind = "general"
)

// FileError is reported to the host for rejected batches, rejected files and
// failed uploads.
type FileError struct {
	Kind     ErrorKind `json:"type"`
	Message  string    `json:"message"`
	FileName string    `json:"fileName,omitempty"`
}

func (e *FileError) Error() string {
	if e.FileName == "" {
		return e.Message
	}
	return e.FileName + ": " + e.Message
}
