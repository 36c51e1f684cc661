/*
 * periph - AWS/HET tape media handlers
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

	utape "github.com/rcornwell/periph/util/tape"
)

// AWSHandler implements MediaHandler over the existing frame-level AWS tape
// engine (util/tape.Context), driving it one whole block at a time instead
// of the byte-serial frame loop the 2400/3400 model uses directly.
type AWSHandler struct {
	ctx       *utape.Context
	readOnly  bool
	blockID   uint32
	passedEOT bool
	compress  CompressionParams
}

// CompressionParams mirrors the HET mount-argument tuning knobs. This
// rewrite does not implement an actual compression codec (no Non-goal
// names HET compression, but it is out of the distilled scope); the
// parameters are preserved so mount-argument parsing round-trips and a
// codec can be dropped in behind AWSHandler without another parser change.
type CompressionParams struct {
	Method    int
	Level     int
	ChunkSize int
}

// NewAWSHandler constructs an AWS (or HET, sharing the same container
// engine) media handler.
func NewAWSHandler() *AWSHandler {
	return &AWSHandler{ctx: utape.NewTapeContext()}
}

func (h *AWSHandler) Open(filename string, readOnly bool) error {
	if err := h.ctx.SetFormat("AWS"); err != nil {
		return err
	}
	h.readOnly = readOnly
	if readOnly {
		h.ctx.SetNoRing()
	} else {
		h.ctx.SetRing()
	}
	return h.ctx.Attach(filename)
}

func (h *AWSHandler) Close() error {
	return h.ctx.Detach()
}

func (h *AWSHandler) IsLoaded() bool { return h.ctx.Attached() }

func (h *AWSHandler) ReadBlock(buf []byte) (int, bool, error) {
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
	h.passedEOT = false
	return n, false, nil
}

func (h *AWSHandler) WriteBlock(buf []byte) error {
	if h.readOnly {
		return ErrWriteProtect
	}
	if err := h.ctx.WriteStart(); err != nil {
		return err
	}
	for _, b := range buf {
		if err := h.ctx.WriteFrame(b); err != nil {
			return err
		}
	}
	h.blockID++
	return h.ctx.FinishRecord()
}

func (h *AWSHandler) WriteMark() error {
	if h.readOnly {
		return ErrWriteProtect
	}
	return h.ctx.WriteMark()
}

func (h *AWSHandler) Rewind() error { return h.ctx.Rewind() }

func (h *AWSHandler) FSB() error {
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

func (h *AWSHandler) BSB() error {
	if err := h.ctx.ReadBackStart(); err != nil {
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

func (h *AWSHandler) FSF() error {
	for {
		if err := h.ctx.ReadForwStart(); err != nil {
			if errors.Is(err, utape.TapeMARK) {
				return nil
			}
			return err
		}
		for {
			_, err := h.ctx.ReadFrame()
			if errors.Is(err, utape.TapeEOR) {
				break
			}
			if err != nil {
				return err
			}
		}
	}
}

func (h *AWSHandler) BSF() error {
	for {
		if err := h.ctx.ReadBackStart(); err != nil {
			if errors.Is(err, utape.TapeMARK) {
				return nil
			}
			return err
		}
		for {
			_, err := h.ctx.ReadFrame()
			if errors.Is(err, utape.TapeEOR) {
				break
			}
			if err != nil {
				return err
			}
		}
	}
}

func (h *AWSHandler) Sync() error { return nil }

func (h *AWSHandler) DSE() error {
	if h.readOnly {
		return ErrWriteProtect
	}
	return nil
}

func (h *AWSHandler) ERG() error {
	if h.readOnly {
		return ErrWriteProtect
	}
	return nil
}

func (h *AWSHandler) RefreshStatus() error { return nil }

func (h *AWSHandler) PassedEOT() bool { return h.passedEOT }

func (h *AWSHandler) AtLoadPoint() bool { return h.ctx.TapeAtLoadPt() }

func (h *AWSHandler) BlockID() uint32 { return h.blockID }

func (h *AWSHandler) ReadOnly() bool { return h.readOnly || !h.ctx.TapeRing() }

// HETHandler is the HET (compressed AWS superset) backing. It embeds
// AWSHandler and layers compression-parameter bookkeeping on top; the
// compressed codec itself is out of scope (see CompressionParams).
type HETHandler struct {
	*AWSHandler
}

// NewHETHandler constructs a HET media handler with the given compression
// tuning (validated against HETMIN/HETMAX by the mount-argument parser).
func NewHETHandler(params CompressionParams) *HETHandler {
	h := &HETHandler{AWSHandler: NewAWSHandler()}
	h.compress = params
	return h
}
