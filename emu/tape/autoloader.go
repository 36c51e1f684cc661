/*
 * periph - Tape autoloader
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package tape

import (
	"bufio"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrLoaderClosed is returned by MountNext once every slot has been tried.
var ErrLoaderClosed = errors.New("autoloader closed")

// Slot is one entry of an autoloader description file: a filename plus
// its own mount arguments.
type Slot struct {
	Filename string
	Args     []string
}

// Autoloader manages an ordered list of cartridges. mount is the mount
// procedure (the same one a plain "mount this filename with these
// arguments" operator command uses); it is injected so the autoloader
// stays independent of the device/media-handler wiring.
type Autoloader struct {
	mu         sync.Mutex
	slots      []Slot
	globalArgs []string
	current    int
	closed     bool
	mount      func(filename string, args []string) error

	waiterDone chan struct{}
}

// ParseDescriptionFile reads an autoloader description file: '#' comments,
// blank lines ignored, a leading '*' line supplies global arguments
// inherited by every slot, everything else is "filename args...".
func ParseDescriptionFile(path string) ([]Slot, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var slots []Slot
	var global []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "*") {
			global = append(global, strings.Fields(strings.TrimPrefix(line, "*"))...)
			continue
		}
		fields := strings.Fields(line)
		slots = append(slots, Slot{Filename: fields[0], Args: fields[1:]})
	}
	return slots, global, scanner.Err()
}

// NewAutoloader constructs a loader over slots with the given mount
// callback.
func NewAutoloader(slots []Slot, globalArgs []string, mount func(string, []string) error) *Autoloader {
	return &Autoloader{slots: slots, globalArgs: globalArgs, mount: mount, current: -1}
}

func (a *Autoloader) args(s Slot) []string {
	out := make([]string, 0, len(a.globalArgs)+len(s.Args))
	out = append(out, s.Args...)
	out = append(out, a.globalArgs...)
	return out
}

// MountFirst mounts slot 0.
func (a *Autoloader) MountFirst() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.slots) == 0 {
		return ErrLoaderClosed
	}
	a.current = 0
	return a.mount(a.slots[0].Filename, a.args(a.slots[0]))
}

// MountNext advances to the next slot and mounts it, closing the loader
// (returning ErrLoaderClosed) once past the last slot.
func (a *Autoloader) MountNext() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current++
	if a.current >= len(a.slots) {
		a.closed = true
		return ErrLoaderClosed
	}
	s := a.slots[a.current]
	return a.mount(s.Filename, a.args(s))
}

// Closed reports whether every slot has been consumed.
func (a *Autoloader) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// StartWaiter spawns a background goroutine that retries MountNext every
// interval until it succeeds or the loader is closed, raising onMounted
// (expected to post a channel attention with device-end) on success. It is
// a real goroutine, not a cooperative event-scheduler callback, because
// the wait is open-ended and should not block the CCW thread.
func (a *Autoloader) StartWaiter(interval time.Duration, onMounted func()) {
	a.mu.Lock()
	if a.waiterDone != nil {
		a.mu.Unlock()
		return
	}
	done := make(chan struct{})
	a.waiterDone = done
	a.mu.Unlock()

	go func() {
		defer func() {
			a.mu.Lock()
			a.waiterDone = nil
			a.mu.Unlock()
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				err := a.MountNext()
				if err == nil {
					onMounted()
					return
				}
				if errors.Is(err, ErrLoaderClosed) {
					return
				}
				slog.Warn("autoloader retry failed: " + err.Error())
			}
		}
	}()
}

// StopWaiter cancels a running waiter goroutine, if any.
func (a *Autoloader) StopWaiter() {
	a.mu.Lock()
	done := a.waiterDone
	a.mu.Unlock()
	if done != nil {
		close(done)
	}
}
