/*
 * periph - SCSI (generic tape driver) media handler
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
	"errors"
	"io"
	"os"
)

// SCSIHandler passes reads and writes straight through to a generic tape
// device node (e.g. /dev/nst0, \\.\Tape0), relying on the OS tape driver to
// turn sequential reads/writes into block and tapemark semantics the way a
// real generic driver does. No vendor-specific SCSI passthrough ioctls are
// implemented (that is an explicit Non-goal); block and tapemark
// boundaries come from the driver's own read-size/zero-byte-record
// conventions.
type SCSIHandler struct {
	file      *os.File
	readOnly  bool
	noErg     bool
	blkid32   bool
	blockID   uint32
	passedEOT bool
}

// NewSCSIHandler constructs a SCSI handler. blkid32 selects 32-bit
// block-ids (--blkid-32); noErg suppresses ERG CCWs (--no-erg).
func NewSCSIHandler(blkid32, noErg bool) *SCSIHandler {
	return &SCSIHandler{blkid32: blkid32, noErg: noErg}
}

func (h *SCSIHandler) Open(filename string, readOnly bool) error {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(filename, flag, 0)
	if err != nil {
		return err
	}
	h.file = f
	h.readOnly = readOnly
	return nil
}

func (h *SCSIHandler) Close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

func (h *SCSIHandler) IsLoaded() bool { return h.file != nil }

func (h *SCSIHandler) ReadBlock(buf []byte) (int, bool, error) {
	if h.file == nil {
		return 0, false, ErrNotLoaded
	}
	n, err := h.file.Read(buf)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, true, nil // zero-length record: generic driver's tapemark convention
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, false, err
	}
	h.blockID++
	return n, false, nil
}

func (h *SCSIHandler) WriteBlock(buf []byte) error {
	if h.readOnly {
		return ErrWriteProtect
	}
	if h.file == nil {
		return ErrNotLoaded
	}
	_, err := h.file.Write(buf)
	if err == nil {
		h.blockID++
	}
	return err
}

func (h *SCSIHandler) WriteMark() error {
	if h.readOnly {
		return ErrWriteProtect
	}
	if h.file == nil {
		return ErrNotLoaded
	}
	_, err := h.file.Write(nil)
	return err
}

func (h *SCSIHandler) Rewind() error {
	if h.file == nil {
		return ErrNotLoaded
	}
	_, err := h.file.Seek(0, io.SeekStart)
	h.blockID = 0
	return err
}

func (h *SCSIHandler) FSB() error {
	var b [65536]byte
	_, _, err := h.ReadBlock(b[:])
	return err
}

func (h *SCSIHandler) BSB() error {
	return errors.New("backward space block requires generic driver MTIOCTOP support, not implemented")
}

func (h *SCSIHandler) FSF() error {
	for {
		var b [65536]byte
		_, mark, err := h.ReadBlock(b[:])
		if err != nil {
			return err
		}
		if mark {
			return nil
		}
	}
}

func (h *SCSIHandler) BSF() error {
	return errors.New("backward space file requires generic driver MTIOCTOP support, not implemented")
}

func (h *SCSIHandler) Sync() error {
	if h.file == nil {
		return ErrNotLoaded
	}
	return h.file.Sync()
}

func (h *SCSIHandler) DSE() error {
	if h.readOnly {
		return ErrWriteProtect
	}
	return nil
}

func (h *SCSIHandler) ERG() error {
	if h.noErg {
		return nil // suppressed by --no-erg
	}
	if h.readOnly {
		return ErrWriteProtect
	}
	return nil
}

// RefreshStatus re-queries the backing device. On this generic-driver
// implementation there is no separate status channel to re-poll, so it is
// a no-op distinct from IsLoaded/PassedEOT (see the blockid/passed_eot
// design note); a platform-specific build could implement this with
// MTIOCGET without touching the MediaHandler contract.
func (h *SCSIHandler) RefreshStatus() error { return nil }

func (h *SCSIHandler) PassedEOT() bool { return h.passedEOT }

func (h *SCSIHandler) AtLoadPoint() bool { return h.blockID == 0 }

func (h *SCSIHandler) BlockID() uint32 { return h.blockID }

func (h *SCSIHandler) ReadOnly() bool { return h.readOnly }
