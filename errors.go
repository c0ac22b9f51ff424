// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import "errors"

var (
	// ErrEmptyInput is returned when a tool is handed no bytes at all.
	ErrEmptyInput = errors.New("press: empty input")

	ErrNotJPEG               = errors.New("press: stream is not a JPEG")
	ErrImageTooSmall         = errors.New("press: image below minimum dimension")
	ErrUnsupportedColorModel = errors.New("press: unsupported color model")
	ErrUnsupportedMime       = errors.New("press: unsupported mime type")

	// ErrInvalidPageSelection is returned when a page selection names no page
	// of the document.
	ErrInvalidPageSelection = errors.New("press: invalid page selection")
	ErrNoImages             = errors.New("press: no images given")

	errNoLibrary = errors.New("press: no document library")
)
