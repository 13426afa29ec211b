/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the library as one JSON document under a single key.
// Backends are a directory of JSON files (transactional writes, timestamped
// backups, fallback to the newest backup) or an embedded SQLite database that
// also keeps a trigram full-text index of every page.
// Loading is tolerant: older document shapes are migrated and missing fields
// defaulted rather than reported.
package storage
