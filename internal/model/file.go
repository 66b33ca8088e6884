// Package model contains the types shared by the widget, its host process and
// the event worker.
package model

import (
	"time"
)

// Status describes where a queue item is in the upload lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// QueueItem is a file accepted for upload. Completed items share the type and
// always carry StatusSuccess.
type QueueItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
	// Progress is a percentage in [0, 100].
	Progress float64 `json:"uploadProgress"`
	Status   Status  `json:"status"`
	// Preview holds a data URI; empty means no preview.
	Preview string `json:"preview,omitempty"`
	Error   string `json:"error,omitempty"`
	// Pages is the page count of PDF documents, 0 when unknown.
	Pages int `json:"pages,omitempty"`
	// File keeps the original candidate around for downloads.
	File File `json:"-"`
}

// NewQueueItem builds a pending item from an accepted candidate.
func NewQueueItem(id string, f File) QueueItem {
	return QueueItem{
		ID:           id,
		Name:         f.Name(),
		Size:         f.Size(),
		Type:         f.Type(),
		LastModified: f.LastModified(),
		Status:       StatusPending,
		File:         f,
	}
}

// Completed returns a copy of the item promoted to the completed list.
func (q QueueItem) Completed(at time.Time) QueueItem {
	q.Status = StatusSuccess
	q.Progress = 100
	q.LastModified = at
	q.Error = ""
	return q
}
