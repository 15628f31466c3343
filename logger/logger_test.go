//
// Copyright 2021 Johns Hopkins University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package logger

import (
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"testing"
)

func Test_Initialize(t *testing.T) {
	defer func() { _ = Initialize("warn") }()

	assert.Nil(t, Initialize("debug"))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	assert.Nil(t, Initialize("error"))
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func Test_InitializeBadLevel(t *testing.T) {
	assert.NotNil(t, Initialize("chatty"))
}
