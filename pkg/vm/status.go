// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package vm

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Monitor is embedded by each machine to funnel every step through Attempt.
// It attributes diagnostics to the owner of the machine, and retains the cause
// of the most recent fault.
type Monitor struct {
	logger log.FieldLogger
	fault  error
}

// SetLogger directs diagnostics to a given logger, such as one carrying the
// name of the node being executed.
func (p *Monitor) SetLogger(logger log.FieldLogger) {
	p.logger = logger
}

// Logger returns the logger to which diagnostics are written.  By default, this
// is the standard logger.
func (p *Monitor) Logger() log.FieldLogger {
	if p.logger == nil {
		return log.StandardLogger()
	}
	//
	return p.logger
}

// Fault returns the cause of the most recent attempt, when that attempt ended
// in Error.  Otherwise, this returns nil.
func (p *Monitor) Fault() error {
	return p.fault
}

// Attempt executes one step of a machine and converts its outcome into a
// status.  Blocking is reported at debug level only, since it is the normal
// backpressure signal, whereas any other fault is logged as an error.  A
// panic raised by the step is recovered and treated as a fault, such that
// nothing unwinds beyond this boundary.
func (p *Monitor) Attempt(phase string, step func() error) (status Status) {
	var logger = p.Logger()
	//
	p.fault = nil
	//
	defer func() {
		if r := recover(); r != nil {
			p.fault = fmt.Errorf("%s failed: %v", phase, r)
			logger.Error(p.fault)
			//
			status = Error
		}
	}()
	//
	err := step()
	//
	if err == nil {
		return Success
	} else if errors.Is(err, ErrFifoEmpty) {
		logger.Debugf("%s blocked: %v", phase, err)
		return Blocked
	}
	//
	p.fault = fmt.Errorf("%s failed: %w", phase, err)
	logger.Error(p.fault)
	//
	return Error
}

// FifoEmpty constructs an error identifying which fifo blocked.
func FifoEmpty(fifo string) error {
	return fmt.Errorf("%w: %s", ErrFifoEmpty, fifo)
}

// UnknownFifo constructs an error identifying which fifo is unknown.
func UnknownFifo(fifo string) error {
	return fmt.Errorf("%w: %s", ErrUnknownFifo, fifo)
}
