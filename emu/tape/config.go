/*
 * periph - Tape mount-argument parsing and device registration
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
	"strconv"
	"strings"
)

// MountOptions is the parsed form of a mount argument vector, per the
// grammar in the external interfaces section: "filename [opts...]".
type MountOptions struct {
	AWSTape    bool
	Compress   bool
	Method     int
	Level      int
	ChunkSize  int
	MaxSize    int64
	EOTMargin  int64
	StrictSize bool
	DEONIRQ    bool
	ReadOnly   bool
	Blkid32    bool
	NoErg      bool
}

const defaultEOTMargin = 128 * 1024

// DefaultMountOptions returns the option set a bare filename with no
// further arguments mounts with.
func DefaultMountOptions() MountOptions {
	return MountOptions{EOTMargin: defaultEOTMargin}
}

// ParseMountArgs parses the option tokens following a mount's filename.
func ParseMountArgs(args []string) (MountOptions, error) {
	opt := DefaultMountOptions()
	for _, tok := range args {
		key, val, hasVal := strings.Cut(tok, "=")
		key = strings.ToLower(key)
		switch key {
		case "awstape":
			opt.AWSTape = true
		case "idrc", "compress":
			opt.Compress = hasVal && val != "0"
		case "method":
			opt.Method, _ = strconv.Atoi(val)
		case "level":
			opt.Level, _ = strconv.Atoi(val)
		case "chunksize":
			opt.ChunkSize, _ = strconv.Atoi(val)
		case "maxsize":
			n, _ := strconv.ParseInt(val, 10, 64)
			opt.MaxSize = n
		case "maxsizek":
			n, _ := strconv.ParseInt(val, 10, 64)
			opt.MaxSize = n * 1024
		case "maxsizem":
			n, _ := strconv.ParseInt(val, 10, 64)
			opt.MaxSize = n * 1024 * 1024
		case "eotmargin":
			n, _ := strconv.ParseInt(val, 10, 64)
			opt.EOTMargin = n
		case "strictsize":
			opt.StrictSize = !hasVal || val != "0"
		case "deonirq":
			opt.DEONIRQ = !hasVal || val != "0"
		case "readonly":
			opt.ReadOnly = !hasVal || val != "0"
		case "ro", "noring":
			opt.ReadOnly = true
		case "rw", "ring":
			opt.ReadOnly = false
		case "--blkid-32":
			opt.Blkid32 = true
		case "--no-erg":
			opt.NoErg = true
		}
	}
	return opt, nil
}

// SelectMediaKind determines which backing a mount filename selects, per
// the filename-pattern rules: ".tdf" -> OMA, a device node path -> SCSI,
// ".het" -> HET, anything else -> AWS.
func SelectMediaKind(filename string) mediaKind {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tdf"):
		return KindOMA
	case strings.HasPrefix(filename, "/dev/"), strings.HasPrefix(filename, `\\.\Tape`):
		return KindSCSI
	case strings.HasSuffix(lower, ".het"):
		return KindHET
	default:
		return KindAWS
	}
}

// NewMediaHandler builds the MediaHandler a filename and its parsed mount
// options select.
func NewMediaHandler(filename string, opt MountOptions) MediaHandler {
	switch SelectMediaKind(filename) {
	case KindOMA:
		return NewOMAHandler()
	case KindSCSI:
		return NewSCSIHandler(opt.Blkid32, opt.NoErg)
	case KindHET:
		return NewHETHandler(CompressionParams{Method: opt.Method, Level: opt.Level, ChunkSize: opt.ChunkSize})
	default:
		return NewAWSHandler()
	}
}

// TapeUnloadedSentinel is the filename value meaning "no medium present".
const TapeUnloadedSentinel = "TAPE_UNLOADED"
