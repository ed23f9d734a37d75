// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lfkit_debug

package lfkit

// DebugEnabled is true when built with -tags lfkit_debug.
const DebugEnabled = true

// assert panics with msg when cond is false.
func assert(cond bool, msg string) {
	if !cond {
		panic("lfkit: " + msg)
	}
}
