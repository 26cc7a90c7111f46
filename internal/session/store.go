package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("user session not found")
	ErrUnknownField = errors.New("unknown session field")
)

type Field string

const (
	FieldDocumentPath    Field = "document_path"
	FieldVectorStorePath Field = "vector_store_path"
	FieldRefPath         Field = "ref_knowledge_path"
	FieldTopic           Field = "topic"
	FieldClearHistory    Field = "clear_history"
)

var fields = []Field{FieldDocumentPath, FieldVectorStorePath, FieldRefPath, FieldTopic, FieldClearHistory}

func (f Field) valid() bool {
	for _, known := range fields {
		if f == known {
			return true
		}
	}
	return false
}

// Record is the per-user state kept between requests.
type Record struct {
	UserID          string    `json:"user_id"`
	DocumentPath    string    `json:"document_path"`
	VectorStorePath string    `json:"vector_store_path"`
	RefPath         string    `json:"ref_knowledge_path"`
	Topic           string    `json:"topic"`
	ClearHistory    bool      `json:"clear_history"`
	LastAccess      time.Time `json:"last_access"`
}

// HasDocument reports whether the user has uploaded and indexed a document.
func (r Record) HasDocument() bool {
	return r.VectorStorePath != ""
}

func (r Record) get(f Field) string {
	switch f {
	case FieldDocumentPath:
		return r.DocumentPath
	case FieldVectorStorePath:
		return r.VectorStorePath
	case FieldRefPath:
		return r.RefPath
	case FieldTopic:
		return r.Topic
	case FieldClearHistory:
		if r.ClearHistory {
			return "true"
		}
		return "false"
	}
	return ""
}

func (r *Record) set(f Field, v string) {
	switch f {
	case FieldDocumentPath:
		r.DocumentPath = v
	case FieldVectorStorePath:
		r.VectorStorePath = v
	case FieldRefPath:
		r.RefPath = v
	case FieldTopic:
		r.Topic = v
	case FieldClearHistory:
		r.ClearHistory = v == "true"
	}
}

// Store keeps user records. Get and Set on a user that was never created
// return ErrNotFound.
type Store interface {
	GetOrCreate(ctx context.Context, userID string) (Record, error)
	Get(ctx context.Context, userID string, field Field) (string, error)
	Set(ctx context.Context, userID string, field Field, value string) error
	Update(ctx context.Context, userID string, values map[Field]string) error
}

// BoolValue renders a flag for Set.
func BoolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
