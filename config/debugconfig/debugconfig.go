/*
 * S370 - Debug options configuration.
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

package debugconfig

import (
	"errors"
	"strings"

	config "github.com/rcornwell/periph/config/configparser"
	"github.com/rcornwell/periph/emu/channel"
	dev "github.com/rcornwell/periph/emu/device"
	"github.com/rcornwell/periph/emu/him"
	"github.com/rcornwell/periph/util/tape"
)

// sys is the running channel system device-level debug options dispatch
// against. main wires it in with SetSystem before parsing the config file,
// since the config line grammar carries no System handle of its own.
var sys *channel.System

// SetSystem installs the channel system config debug lines resolve device
// numbers against.
func SetSystem(s *channel.System) { sys = s }

// register a device on initialize.
func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
}

// Apply the options of a DEBUG line to the named subsystem.
func setDebug(devNum uint16, device string, options []config.Option) error {
	switch strings.ToUpper(device) {
	case "HIM":
		// Process HIM connection-engine debug options.
		for _, opt := range options {
			err := him.Debug(strings.ToUpper(opt.Name))
			if err != nil {
				return err
			}
			if len(opt.Value) != 0 {
				for _, value := range opt.Value {
					err = him.Debug(strings.ToUpper(*value))
					if err != nil {
						return err
					}
				}
			}
		}

	case "TAPE":
		// Process tape debug options
		for _, opt := range options {
			err := tape.Debug(strings.ToUpper(opt.Name))
			if err != nil {
				return err
			}
			if len(opt.Value) != 0 {
				for _, value := range opt.Value {
					err = tape.Debug(strings.ToUpper(*value))
					if err != nil {
						return err
					}
				}
			}
		}

	default:
		if devNum == dev.NoDev {
			return errors.New("debug option invalid: " + device)
		}
		if sys == nil {
			return errors.New("no channel system installed for device debug")
		}
		target := sys.GetDevice(devNum)
		if target == nil {
			return errors.New("no device at that address")
		}

		for _, opt := range options {
			err := target.Debug(strings.ToUpper(opt.Name))
			if err != nil {
				return err
			}
			if len(opt.Value) != 0 {
				for _, value := range opt.Value {
					err = target.Debug(strings.ToUpper(*value))
					if err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
