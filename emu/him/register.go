/*
 * periph - HIM device model registration
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
	"errors"

	config "github.com/rcornwell/periph/config/configparser"
	"github.com/rcornwell/periph/emu/channel"
	"go.uber.org/zap"
)

// sys is the channel system new HIM subchannels attach to. main wires it
// in with SetSystem before parsing the config file, since the config line
// grammar carries no System handle of its own.
var sys *channel.System

// log is the logger new HIM devices are built with. main wires it in with
// SetLogger; a nil logger falls back to zap.NewNop() in NewDevice.
var log *zap.Logger

// SetSystem installs the channel system config "HIM" lines attach new
// subchannels to.
func SetSystem(s *channel.System) { sys = s }

// SetLogger installs the logger new HIM devices are built with.
func SetLogger(l *zap.Logger) { log = l }

// register a device on initialize. HIM takes no mount argument, just a
// subchannel address, so it registers as TypeModel like any other device
// line rather than TypeOption/TypeOptions.
func init() {
	config.RegisterModel("HIM", config.TypeModel, create)
}

func create(devNum uint16, _ string, _ []config.Option) error {
	if sys == nil {
		return errors.New("him: no channel system installed for device registration")
	}
	dev := NewDevice(sys, devNum, log)
	return sys.AddDevice(devNum, dev)
}
