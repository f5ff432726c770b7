/* filter.go: a learned set of commands the upstream IPMI responder does not implement
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

import (
	"fmt"
	"sort"
	"sync"
)

// FilterEntry is a request netFn and command pair
type FilterEntry struct {
	NetFn uint8 `json:"netFn"`
	Cmd   uint8 `json:"cmd"`
}

func (f FilterEntry) String() string { return fmt.Sprintf("netFn=%#02x cmd=%#02x", f.NetFn, f.Cmd) }

// CommandFilter is an append-only set of blocked commands.
// One filter is shared by every channel of a bridge, so it is safe for concurrent use.
type CommandFilter struct {
	mutex sync.RWMutex
	cmds  map[FilterEntry]struct{}
}

// NewCommandFilter creates an empty CommandFilter
func NewCommandFilter() *CommandFilter {
	return &CommandFilter{
		cmds: make(map[FilterEntry]struct{}),
	}
}

// IsBlocked reports whether the request netFn/cmd pair has been added
func (f *CommandFilter) IsBlocked(netFn, cmd uint8) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	_, ok := f.cmds[FilterEntry{NetFn: netFn, Cmd: cmd}]
	return ok
}

// Add inserts a request netFn/cmd pair. It returns false if the pair was already present.
func (f *CommandFilter) Add(netFn, cmd uint8) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	k := FilterEntry{NetFn: netFn, Cmd: cmd}
	if _, ok := f.cmds[k]; ok {
		return false
	}
	f.cmds[k] = struct{}{}
	return true
}

// Len is the number of blocked commands
func (f *CommandFilter) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.cmds)
}

// List returns the blocked commands ordered by netFn, then cmd
func (f *CommandFilter) List() (l []FilterEntry) {
	f.mutex.RLock()
	l = make([]FilterEntry, 0, len(f.cmds))
	for k := range f.cmds {
		l = append(l, k)
	}
	f.mutex.RUnlock()
	sort.Slice(l, func(i, j int) bool {
		if l[i].NetFn != l[j].NetFn {
			return l[i].NetFn < l[j].NetFn
		}
		return l[i].Cmd < l[j].Cmd
	})
	return
}
