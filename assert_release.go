// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !lfkit_debug

package lfkit

// DebugEnabled is false in release builds. Assertions whose condition
// costs anything sit behind an if DebugEnabled guard so the condition
// itself is compiled away.
const DebugEnabled = false

func assert(bool, string) {}
