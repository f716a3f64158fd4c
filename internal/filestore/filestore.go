// Package filestore creates folders and documents in object storage and
// renders document templates from a merge map.
package filestore

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Document is a stored document and a link a person can open.
type Document struct {
	ID  string
	URL string
}

// Store is the FileStore port. Folder and template ids are opaque to callers.
type Store interface {
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	ReadTemplate(ctx context.Context, templateID string) (string, error)
	CreateDocument(ctx context.Context, folderID, name, content string) (*Document, error)
}

// markerName is the object that makes an otherwise empty folder prefix exist.
const markerName = ".keep"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// objectName turns a display name into one path segment. An empty result
// gets a random name.
func objectName(name string) string {
	n := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "-")
	n = strings.Trim(n, ".- ")
	if n == "" {
		return uuid.NewString()
	}
	return n
}

func join(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
