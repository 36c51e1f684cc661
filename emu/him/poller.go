/*
 * periph - HIM background socket poller
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

package him

import (
	"net"
	"syscall"

	D "github.com/rcornwell/periph/emu/device"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const pollIntervalMillis = 10

// poll runs as one detached goroutine per connected subchannel. It never
// mutates the event queue directly; it only raises channel attention,
// leaving the state transition to the next CCW on the caller thread.
func (d *Device) poll() {
	defer func() {
		d.mu.Lock()
		d.pollerRunning = false
		d.mu.Unlock()
	}()

	for {
		d.mu.Lock()
		halt := d.haltRequested
		watch := d.watchSock
		rnr := d.rnr
		conn := d.conn
		d.mu.Unlock()

		if halt || !watch {
			return
		}
		if rnr || conn == nil {
			sleepMillis(pollIntervalMillis)
			continue
		}

		ready, err := pollReadable(conn, pollIntervalMillis)
		if err != nil {
			d.log.Debug("him poller error", zap.Error(err))
			sleepMillis(pollIntervalMillis)
			continue
		}
		if !ready {
			continue
		}

		d.mu.Lock()
		d.watchSock = false
		d.mu.Unlock()
		d.sys.SetDevAttn(d.addr, D.CStatusAttn)
		return
	}
}

// pollReadable reports whether conn has data available to read within
// timeoutMillis, using the raw file descriptor so the poll doesn't
// consume any bytes itself.
func pollReadable(conn net.Conn, timeoutMillis int) (bool, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return true, nil // can't introspect; fall through to a blocking Read attempt
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false, err
	}

	var ready bool
	var pollErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, e := unix.Poll(fds, timeoutMillis)
		if e != nil {
			pollErr = e
			return
		}
		ready = n > 0 && fds[0].Revents&unix.POLLIN != 0
	})
	if ctrlErr != nil {
		return false, ctrlErr
	}
	return ready, pollErr
}
