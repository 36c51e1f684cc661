/*
 * periph - OMA tape media handler
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
	"os"
	"strings"

	utape "github.com/rcornwell/periph/util/tape"
)

// OMAHandler presents a sequence of constituent files (named by a .tdf
// description file) as one logical, read-only, multi-file tape. Every
// mutating operation fails with ErrWriteProtect via writeProtectHelper.
type OMAHandler struct {
	writeProtectHelper

	files    []string
	fileIdx  int
	ctx      *utape.Context
	loaded   bool
	blockID  uint32
}

// NewOMAHandler constructs an OMA handler.
func NewOMAHandler() *OMAHandler {
	return &OMAHandler{ctx: utape.NewTapeContext()}
}

// Open reads the .tdf description file (one constituent filename per
// line, '#' comments and blank lines ignored) and opens the first file.
func (h *OMAHandler) Open(filename string, _ bool) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		h.files = append(h.files, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(h.files) == 0 {
		return errors.New("OMA description file names no constituent files")
	}

	if err := h.ctx.SetFormat("AWS"); err != nil {
		return err
	}
	h.ctx.SetNoRing()
	if err := h.ctx.Attach(h.files[0]); err != nil {
		return err
	}
	h.fileIdx = 0
	h.loaded = true
	return nil
}

func (h *OMAHandler) Close() error {
	h.loaded = false
	return h.ctx.Detach()
}

func (h *OMAHandler) IsLoaded() bool { return h.loaded }

func (h *OMAHandler) ReadBlock(buf []byte) (int, bool, error) {
	if err := h.ctx.ReadForwStart(); err != nil {
		if errors.Is(err, utape.TapeMARK) {
			return 0, true, nil
		}
		return 0, false, err
	}
	n := 0
	for n < len(buf) {
		b, err := h.ctx.ReadFrame()
		if err != nil {
			if errors.Is(err, utape.TapeEOR) {
				break
			}
			return n, false, err
		}
		buf[n] = b
		n++
	}
	return n, false, nil
}

// Rewind returns to the first constituent file.
func (h *OMAHandler) Rewind() error {
	if h.fileIdx != 0 {
		if err := h.ctx.Detach(); err != nil {
			return err
		}
		if err := h.ctx.Attach(h.files[0]); err != nil {
			return err
		}
		h.fileIdx = 0
	}
	return h.ctx.Rewind()
}

func (h *OMAHandler) FSB() error {
	if err := h.ctx.ReadForwStart(); err != nil {
		return err
	}
	for {
		_, err := h.ctx.ReadFrame()
		if errors.Is(err, utape.TapeEOR) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *OMAHandler) BSB() error {
	if h.ctx.RewindFrames(1) {
		return nil
	}
	return errors.New("backward space block failed")
}

// FSF advances to the next constituent file, which is how OMA represents
// tape marks between logical files.
func (h *OMAHandler) FSF() error {
	if h.fileIdx+1 >= len(h.files) {
		return utape.TapeEOT
	}
	if err := h.ctx.Detach(); err != nil {
		return err
	}
	h.fileIdx++
	return h.ctx.Attach(h.files[h.fileIdx])
}

func (h *OMAHandler) BSF() error {
	if h.fileIdx == 0 {
		return utape.TapeBOT
	}
	if err := h.ctx.Detach(); err != nil {
		return err
	}
	h.fileIdx--
	return h.ctx.Attach(h.files[h.fileIdx])
}

func (h *OMAHandler) RefreshStatus() error { return nil }

func (h *OMAHandler) PassedEOT() bool { return false }

func (h *OMAHandler) AtLoadPoint() bool { return h.fileIdx == 0 && h.ctx.TapeAtLoadPt() }

func (h *OMAHandler) BlockID() uint32 { return h.blockID }

func (h *OMAHandler) ReadOnly() bool { return true }
