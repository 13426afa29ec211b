/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"fmt"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed library.schema.json
var librarySchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// LibrarySchema returns the JSON schema of the stored document.
func LibrarySchema() []byte { return librarySchema }

// Validate checks a stored document against the library schema and returns
// one message per violation. A nil slice means the document conforms.
func Validate(doc []byte) ([]string, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(librarySchema))
	})
	if schemaErr != nil {
		return nil, fmt.Errorf("load schema: %w", schemaErr)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out, nil
}
