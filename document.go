// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

// LoadOptions controls how a DocumentLibrary opens a file.
type LoadOptions struct {
	// IgnoreEncryption opens restricted files anyway and drops their
	// encryption on save.
	IgnoreEncryption bool
}

// SaveOptions controls how a Document is serialized.
type SaveOptions struct {
	UseObjectStreams bool
}

// DocumentLibrary loads PDF bytes into an editable Document.
type DocumentLibrary interface {
	Load(data []byte, opts LoadOptions) (Document, error)
}

// Document is an opened PDF. Setting a field to the empty string (or Keywords
// to nil) removes it from the document information dictionary.
type Document interface {
	SetTitle(string)
	SetAuthor(string)
	SetSubject(string)
	SetKeywords([]string)
	SetCreator(string)
	SetProducer(string)
	Save(opts SaveOptions) ([]byte, error)
	PageCount() int
}
