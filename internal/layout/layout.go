// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package layout provides raw byte views of slices of fixed-size,
// pointer-free values.  Stores use it to dump and restore their
// backing buffers verbatim, and to lay typed slices over mmap'd
// memory.
package layout

import (
	"fmt"
	"reflect"
	"unsafe"
)

// SizeOf returns the in-memory size of a T, including padding.
func SizeOf[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// PointerFree reports whether a T can be stored in memory the GC doesn't
// scan (an mmap'd file) and copied around as raw bytes.
func PointerFree[T any]() bool {
	return !containsPointers(reflect.TypeFor[T]())
}

// CheckPointerFree returns a descriptive error if T contains pointers.
func CheckPointerFree[T any]() error {
	if !PointerFree[T]() {
		return fmt.Errorf("type %s contains pointers and can't be stored in a raw buffer", reflect.TypeFor[T]())
	}
	return nil
}

func containsPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.String,
		reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsPointers(t.Field(i).Type) {
				return true
			}
		}
	case reflect.Array:
		return t.Len() > 0 && containsPointers(t.Elem())
	}
	return false
}

// Bytes returns a byte slice referring to the contents of s.  No copy is made:
// writes through the result are visible in s and vice versa.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*SizeOf[T]())
}

// Cast returns a []T view of the memory in b.  b must be aligned for T and
// hold a whole number of Ts; mmap'd regions always satisfy the alignment
// requirement.
func Cast[T any](b []byte) ([]T, error) {
	size := SizeOf[T]()
	if size == 0 {
		return nil, fmt.Errorf("can't cast to zero-sized type %s", reflect.TypeFor[T]())
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("buffer length %d not a multiple of element size %d", len(b), size)
	}
	if len(b) == 0 {
		return nil, nil
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	var v T
	if align := uintptr(unsafe.Alignof(v)); uintptr(p)%align != 0 {
		return nil, fmt.Errorf("buffer at %p not aligned to %d bytes", p, align)
	}
	return unsafe.Slice((*T)(p), len(b)/size), nil
}
