/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entry

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func contentPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("div", "span", "br", "b", "strong", "i", "em", "u", "s", "ruby", "rt", "rp")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^[A-Za-z0-9_\- ]*$`)).OnElements("div", "span")
		p.AllowDataAttributes()
		p.AllowAttrs("aria-hidden").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("span")
		policy = p
	})
	return policy
}

// Sanitize strips everything but entry markup and inline emphasis from a
// committed content blob.
func Sanitize(content string) string { return contentPolicy().Sanitize(content) }
