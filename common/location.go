// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package common defines types common to parsing and other diagnostics.
package common

// Location interface to represent a location within Source.
type Location interface {
	Description() string
	Line() int   // 1-based line number within source.
	Column() int // 0-based column number within source.
	Source() Source
}

// SourceLocation helper type to manually construct a location.
type SourceLocation struct {
	description string
	line        int
	column      int
	source      Source
}

var (
	// Ensure the SourceLocation implements the Location interface.
	_          Location = &SourceLocation{}
	NoLocation          = &SourceLocation{}
)

// NewLocation creates a new location unassociated with any particular Source.
func NewLocation(description string, line, column int) Location {
	return &SourceLocation{
		description: description,
		line:        line,
		column:      column}
}

// NewSourceLocation creates a new location tied to a Source, so that error reporting can
// render the offending line as a snippet.
func NewSourceLocation(src Source, line, column int) Location {
	description := ""
	if src != nil {
		description = src.Name()
	}
	return &SourceLocation{
		description: description,
		line:        line,
		column:      column,
		source:      src,
	}
}

func (l *SourceLocation) Description() string {
	return l.description
}

func (l *SourceLocation) Line() int {
	return l.line
}

func (l *SourceLocation) Column() int {
	return l.column
}

// Source returns the Source the location was resolved against, or a TextSource named after the
// location's description, with no contents, when none was supplied.
func (l *SourceLocation) Source() Source {
	if l.source != nil {
		return l.source
	}
	return NewTextSource(l.description, "")
}
