// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workspace owns the lifecycle of a run's "stable" base
// workspace and every per-agent copy-on-write child derived from it.
//
// Isolation is built on spf13/afero's CopyOnWriteFs: each child wraps
// the same shared stable-base afero.Fs as its read-through base and a
// private afero.MemMapFs as its write layer. Reads that miss the
// layer fall through to the base; writes only ever touch the layer, so
// siblings never observe each other's writes.
//
// Accept/reject and all reads/writes on a run's workspaces share one
// sync.RWMutex: normal reads/writes take the read lock, accept takes
// the write lock for the duration of the merge. This is what makes
// accept atomic from a reader's viewpoint — a concurrent read blocks
// until the merge finishes rather than observing a half-merged base.
//
// Open question resolved (spec §9): when two sibling workspaces wrote
// the same path and are accepted in sequence, the later accept()
// overwrites — last-writer-overwrites, matching afero's own merge
// behavior when copying a layer's files onto the base.
package workspace
