/*
 * periph - Tape Load-Display / mount-request engine
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
	"fmt"
	"log/slog"
	"strings"
)

// DisplayState is the Load-Display CCW's state machine value.
type DisplayState int

const (
	DisplayIdle DisplayState = iota
	DisplayWaitAct
	DisplayMount
	DisplayUnmount
	DisplayUmountMount
	DisplayNop
	DisplayResetDisplay
	DisplayErasing
	DisplayRewinding
	DisplayUnloading
	DisplayClean
)

// Format Control Byte layout: top 3 bits select the state machine action.
const (
	fcbActionMask   = 0xe0
	fcbReadyGo      = 0x00
	fcbUnmount      = 0x20
	fcbMount        = 0x40
	fcbNop          = 0x60
	fcbResetDisplay = 0x80
	fcbUmountMount  = 0xe0

	fcbAlternate = 0x10 // AM
	fcbBlinking  = 0x08 // BM
	fcbMessage2  = 0x04 // M2
	fcbAutoload  = 0x02 // AL
)

// Display holds a drive's Load-Display state: the two 8-character message
// slots, the decoded FCB flags, and the cached rendered string used to
// suppress duplicate operator notifications.
type Display struct {
	State         DisplayState
	Alternate     bool
	Blinking      bool
	UseMessage2   bool
	Autoloader    bool
	ReqAutoMount  bool
	Msg1          string
	Msg2          string
	lastRendered  string
	umountPending string // msg2, queued until the unmount half of UMOUNTMOUNT fires
}

// LoadDisplay decodes a Load-Display CCW payload (1 FCB byte + up to two
// 8-byte EBCDIC-decoded message fields) and updates the display state.
// Returns true if the rendered operator message changed.
func (d *Display) LoadDisplay(fcb byte, msg1, msg2 string) bool {
	d.Alternate = fcb&fcbAlternate != 0
	if !d.Alternate {
		d.Blinking = fcb&fcbBlinking != 0
		d.UseMessage2 = fcb&fcbMessage2 != 0
	} else {
		d.Blinking = false
		d.UseMessage2 = false
	}
	d.Autoloader = fcb&fcbAutoload != 0
	if d.Autoloader {
		d.Blinking = false
		d.UseMessage2 = false
		d.Alternate = false
	}

	switch fcb & fcbActionMask {
	case fcbReadyGo:
		d.State = DisplayWaitAct
	case fcbUnmount:
		d.State = DisplayUnmount
	case fcbMount:
		d.State = DisplayMount
	case fcbNop:
		d.State = DisplayNop
	case fcbResetDisplay:
		d.State = DisplayResetDisplay
	case fcbUmountMount:
		d.State = DisplayUmountMount
		d.umountPending = msg2
	}

	d.Msg1 = msg1
	d.Msg2 = msg2

	switch d.State {
	case DisplayUnmount, DisplayMount, DisplayUmountMount, DisplayResetDisplay:
		d.ReqAutoMount = true
	default:
		d.ReqAutoMount = false
	}

	rendered := d.render()
	changed := rendered != d.lastRendered
	d.lastRendered = rendered
	return changed
}

// Unmounted notifies the display engine that the physical cartridge was
// removed, advancing a pending UMOUNTMOUNT to its mount half. The queued
// msg2 becomes the active message classifyAction/MountRequestBanner render,
// the same way a standalone Mount FCB's msg1 would.
func (d *Display) Unmounted() {
	if d.State == DisplayUmountMount {
		d.State = DisplayMount
		d.Msg1 = d.umountPending
		d.ReqAutoMount = true
	} else if d.State == DisplayUnmount {
		d.State = DisplayIdle
		d.ReqAutoMount = false
	}
}

// render produces the current human-readable display string.
func (d *Display) render() string {
	msg := d.Msg1
	if d.UseMessage2 {
		msg = d.Msg2
	}
	return fmt.Sprintf("%d:%s", d.State, strings.TrimRight(msg, " "))
}

// ClassifyMessage reports the mount-request prefix/suffix classification
// the original message-text convention uses: 'M' mount, 'R' ring required,
// 'K' keep; suffix 'S' scratch, 'A' ASCII, anything else labeled/EBCDIC.
func ClassifyMessage(msg string) (prefix, suffix byte) {
	msg = strings.TrimSpace(msg)
	if len(msg) == 0 {
		return 0, 0
	}
	prefix = msg[0]
	suffix = msg[len(msg)-1]
	return prefix, suffix
}

// MountRequestBanner renders the eye-catcher-bordered operator banner used
// when no autoloader is active, per the text convention exercised by the
// UMOUNTMOUNT round-trip scenario.
func MountRequestBanner(devName string, d *Display) string {
	var b strings.Builder
	sep := strings.Repeat("*", 60)
	b.WriteString(sep + "\n")

	switch d.State {
	case DisplayUnmount:
		action, kind := classifyAction(d.Msg1)
		fmt.Fprintf(&b, "* %s %s of UL tape volume '%s'\n", action, kind, trimVolume(d.Msg1))
	case DisplayMount:
		action, kind := classifyAction(d.Msg1)
		fmt.Fprintf(&b, "* %s %s tape volume '%s' on %s\n", action, kind, trimVolume(d.Msg1), devName)
	case DisplayUmountMount:
		fmt.Fprintf(&b, "* Unmount and keep of UL tape volume '%s'\n", trimVolume(d.Msg1))
	case DisplayResetDisplay:
		fmt.Fprintf(&b, "* %s ready\n", devName)
	}

	b.WriteString(sep)
	return b.String()
}

func classifyAction(msg string) (action, kind string) {
	prefix, suffix := ClassifyMessage(msg)
	switch prefix {
	case 'M':
		action = "Mount"
	case 'R':
		action = "Mount (ring required)"
	case 'K':
		action = "Unmount and keep"
	default:
		action = "Mount"
	}
	switch suffix {
	case 'S':
		kind = "of scratch"
	case 'A':
		kind = "of ASCII"
	default:
		kind = "of labeled"
	}
	return action, kind
}

func trimVolume(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 1 {
		return msg[1:]
	}
	return msg
}

// NotifyOperator logs the current display banner if it changed. Call after
// LoadDisplay/Unmounted returns true from a change.
func NotifyOperator(devName string, d *Display) {
	slog.Info("Now Displays: " + d.render())
	if !d.Autoloader {
		slog.Info(MountRequestBanner(devName, d))
	}
}
