/*
 * periph - Tape device model registration
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
	"strings"

	config "github.com/rcornwell/periph/config/configparser"
	"github.com/rcornwell/periph/emu/channel"
)

// sys is the channel system new drives attach to. main wires it in with
// SetSystem before parsing the config file, since the config line grammar
// carries no System handle of its own.
var sys *channel.System

// SetSystem installs the channel system config "3420"/"3480"/... lines
// attach new drives to.
func SetSystem(s *channel.System) { sys = s }

// init registers every named tape family this package models.
func init() {
	register("3410", Family3410)
	register("3420", Family3420)
	register("3422", Family3422)
	register("3430", Family3430)
	register("3480", Family3480)
	register("3490", Family3490)
	register("3590", Family3590)
	register("9347", Family9347)
}

// register wires the per-family create callback, since config.RegisterModel
// only carries the registered keyword as a map key, not as an argument to
// the callback itself.
func register(mod string, fam Family) {
	config.RegisterModel(mod, config.TypeModel, func(devNum uint16, _ string, options []config.Option) error {
		dev := NewDevice(sys, devNum, fam)

		filename := ""
		var args []string
		for _, opt := range options {
			switch strings.ToUpper(opt.Name) {
			case "FILE":
				if opt.EqualOpt == "" {
					return errors.New(mod + ": file option missing filename")
				}
				filename = opt.EqualOpt
			default:
				tok := opt.Name
				if opt.EqualOpt != "" {
					tok += "=" + opt.EqualOpt
				}
				args = append(args, tok)
			}
			for _, v := range opt.Value {
				args = append(args, *v)
			}
		}

		mopt, err := ParseMountArgs(args)
		if err != nil {
			return err
		}

		if sys == nil {
			return errors.New(mod + ": no channel system installed for tape registration")
		}
		if err := sys.AddDevice(devNum, dev); err != nil {
			return err
		}

		if filename == "" || filename == TapeUnloadedSentinel {
			return nil
		}
		handler := NewMediaHandler(filename, mopt)
		return dev.Mount(handler, filename)
	})
}
