/*
 * periph - Tape media handler interface
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

// Package tape implements the 3410-3590/9347 class tape drive CCW engine:
// the media handler abstraction over AWS/HET/OMA/SCSI backings, the
// per-family command validity matrix, sense byte generation, blockid
// translation, the Load-Display/mount-request engine and the autoloader.
package tape

import "errors"

// ErrWriteProtect is returned by every mutating MediaHandler method on a
// read-only backing (OMA, or any backing mounted readonly).
var ErrWriteProtect = errors.New("tape write protected")

// ErrNotLoaded is returned when an operation requires a mounted volume.
var ErrNotLoaded = errors.New("no tape loaded")

// MediaHandler is the polymorphic interface every tape backing (AWS, HET,
// OMA, SCSI) satisfies. The CCW engine only ever talks to a MediaHandler,
// never to a concrete backing type.
type MediaHandler interface {
	Open(filename string, readOnly bool) error
	Close() error
	IsLoaded() bool

	ReadBlock(buf []byte) (n int, tapemark bool, err error)
	WriteBlock(buf []byte) error
	WriteMark() error

	Rewind() error
	FSB() error // forward space block
	BSB() error // backward space block
	FSF() error // forward space file
	BSF() error // backward space file

	Sync() error
	DSE() error // data security erase
	ERG() error // erase gap

	// RefreshStatus re-reads device status from the backing (meaningful
	// for SCSI, where another process could have changed tape state).
	// Kept distinct from IsLoaded/PassedEOT rather than overloading either
	// (see the SCSI passed_eot design note).
	RefreshStatus() error

	PassedEOT() bool
	AtLoadPoint() bool
	BlockID() uint32
	ReadOnly() bool
}

// mediaKind identifies which backing a filename pattern selects.
type mediaKind int

const (
	KindAWS mediaKind = iota
	KindHET
	KindOMA
	KindSCSI
)

// writeProtectHelper implements every mutating MediaHandler method by
// returning ErrWriteProtect. OMA embeds this instead of repeating the same
// one-line method body five times.
type writeProtectHelper struct{}

func (writeProtectHelper) WriteBlock(_ []byte) error { return ErrWriteProtect }
func (writeProtectHelper) WriteMark() error           { return ErrWriteProtect }
func (writeProtectHelper) Sync() error                { return ErrWriteProtect }
func (writeProtectHelper) DSE() error                  { return ErrWriteProtect }
func (writeProtectHelper) ERG() error                  { return ErrWriteProtect }
