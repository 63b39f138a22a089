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
	"testing"

	"github.com/consensys/go-solace/pkg/util/assert"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func Test_Monitor_Success(t *testing.T) {
	t.Parallel()
	//
	var monitor, hook = newMonitor()
	//
	assert.Equal(t, Success, monitor.Attempt("run", func() error { return nil }))
	assert.NoError(t, monitor.Fault())
	assert.Equal(t, 0, len(hook.AllEntries()))
}

func Test_Monitor_Blocked(t *testing.T) {
	t.Parallel()
	//
	var monitor, hook = newMonitor()
	//
	assert.Equal(t, Blocked, monitor.Attempt("run", func() error { return FifoEmpty("in") }))
	assert.NoError(t, monitor.Fault())
	assert.Equal(t, log.DebugLevel, hook.LastEntry().Level)
}

func Test_Monitor_Error(t *testing.T) {
	t.Parallel()
	//
	var (
		monitor, hook = newMonitor()
		cause         = errors.New("division by zero")
	)
	//
	assert.Equal(t, Error, monitor.Attempt("run", func() error { return cause }))
	assert.ErrorIs(t, monitor.Fault(), cause)
	assert.ErrorContains(t, monitor.Fault(), "run failed: division by zero")
	// Diagnostics identify their node
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "counter", hook.LastEntry().Data["node"])
	assert.Equal(t, "run failed: division by zero", hook.LastEntry().Message)
	// A later success clears the fault
	assert.Equal(t, Success, monitor.Attempt("run", func() error { return nil }))
	assert.NoError(t, monitor.Fault())
}

func Test_Monitor_Panic(t *testing.T) {
	t.Parallel()
	//
	var monitor, hook = newMonitor()
	//
	assert.Equal(t, Error, monitor.Attempt("init", func() error { panic("boom") }))
	assert.ErrorContains(t, monitor.Fault(), "init failed: boom")
	assert.Equal(t, "counter", hook.LastEntry().Data["node"])
}

func Test_Monitor_DefaultLogger(t *testing.T) {
	t.Parallel()
	//
	var monitor Monitor
	//
	assert.True(t, monitor.Logger() == log.FieldLogger(log.StandardLogger()))
}

// ============================================================================
// Test Helpers
// ============================================================================

func newMonitor() (*Monitor, *test.Hook) {
	var (
		logger, hook = test.NewNullLogger()
		monitor      Monitor
	)
	//
	logger.SetLevel(log.DebugLevel)
	monitor.SetLogger(logger.WithField("node", "counter"))
	//
	return &monitor, hook
}
