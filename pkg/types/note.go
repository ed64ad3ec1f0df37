// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Note holds the remote metadata for one document, as returned by the
// folder listing. The Version field is the modification marker the planner
// compares against the index; DataModified is informational.
type Note struct {
	// GUID is the stable remote document identifier.
	GUID string `json:"docGuid" yaml:"guid"`

	// Title is the document title as stored remotely.
	Title string `json:"title" yaml:"title"`

	// Folder is the containing folder path (e.g. "/My Notes/Work/").
	Folder string `json:"category" yaml:"folder"`

	// Version is the remote modification marker. It increases whenever the
	// document content changes.
	Version int64 `json:"version" yaml:"version"`

	// DataModified is the last remote modification time in Unix milliseconds.
	DataModified int64 `json:"dataModified" yaml:"data_modified"`
}

// Modified returns DataModified as a time.Time.
func (n Note) Modified() time.Time {
	return time.UnixMilli(n.DataModified)
}

// Attachment identifies one binary attachment of a note.
type Attachment struct {
	// GUID is the stable remote attachment identifier.
	GUID string `json:"attGuid" yaml:"guid"`

	// Name is the original filename.
	Name string `json:"name" yaml:"name"`
}
