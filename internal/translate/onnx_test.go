// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yakura/internal/translate"
)

/*
TestONNXEngine_UnconfiguredUnavailable checks that the in-process engine
sits out of the cascade when no model is deployed, without touching the
runtime.
*/
func TestONNXEngine_UnconfiguredUnavailable(t *testing.T) {
	engine := translate.NewONNXEngine(translate.ONNXConfig{}, testLogger())

	assert.Equal(t, "onnx", engine.Name())
	assert.False(t, engine.Available("en", "tr"))
	assert.False(t, engine.Available("", ""))
}
