// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

// Waiter blocks until ready returns true.
type Waiter interface {
	Wait(ready func() bool) error
}

// WaitFunc adapts a function to a Waiter.
type WaitFunc func(ready func() bool) error

// Wait implements Waiter.
func (f WaitFunc) Wait(ready func() bool) error {
	return f(ready)
}

// Spin polls forever. A stuck bus halts the caller; this is what the
// hardware does too.
var Spin Waiter = WaitFunc(func(ready func() bool) error {
	for !ready() {
	}
	return nil
})

// Bounded returns a Waiter that polls at most n times before returning
// ErrHang.
func Bounded(n int) Waiter {
	return WaitFunc(func(ready func() bool) error {
		for i := 0; i < n; i++ {
			if ready() {
				return nil
			}
		}
		return ErrHang
	})
}
