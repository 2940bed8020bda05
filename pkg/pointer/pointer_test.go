// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/addressbook/pkg/pointer"
)

func TestPointerHelpers(t *testing.T) {
	assert.Equal(t, "a", *pointer.To("a"))
	assert.Equal(t, 0, pointer.Val[int](nil))
	assert.Equal(t, "fallback", pointer.Fallback(nil, "fallback"))
	assert.Equal(t, "set", pointer.Fallback(pointer.To("set"), "fallback"))

	assert.Nil(t, pointer.NilIfZero(""))
	assert.Equal(t, "10.0.0.1", *pointer.NilIfZero("10.0.0.1"))
}
