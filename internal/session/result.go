/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import "errors"

// ErrBookNotFound is returned by Open for an unknown book id.
var ErrBookNotFound = errors.New("book not found")

// View names a part of the caller's display that a mutation made stale.
type View string

const (
	ViewEditor      View = "editor"
	ViewTitle       View = "title"
	ViewPageList    View = "page_list"
	ViewAnnotations View = "annotations"
	ViewHeader      View = "header"
)

var allViews = []View{ViewEditor, ViewTitle, ViewPageList, ViewAnnotations, ViewHeader}

// Rejection explains why a mutation refused to run. Nothing was changed.
type Rejection struct {
	Err     error
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func (r *Rejection) Unwrap() error {
	if r == nil {
		return nil
	}
	return r.Err
}

// Result tells the caller what to refresh after a mutation. The zero value
// means nothing changed, which is also what missing ids produce.
type Result struct {
	Invalidated []View
	Rejection   *Rejection
	// AutoApplied counts glossary annotations inserted on the current page.
	AutoApplied int
	// Notice is a short message for the user, if any.
	Notice string
}

// Changed reports whether anything needs refreshing.
func (r Result) Changed() bool { return len(r.Invalidated) > 0 }

// Rejected reports whether the mutation was refused.
func (r Result) Rejected() bool { return r.Rejection != nil }

func rejected(err error, msg string) Result {
	return Result{Rejection: &Rejection{Err: err, Message: msg}}
}

func invalidate(vs ...View) Result { return Result{Invalidated: vs} }
