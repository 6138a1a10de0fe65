//go:build cgo

package abi

/*
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/oxhq/corelisp/internal/jit"
)

// global is the singleton Bridge the exported C functions below operate
// on. A C caller has no way to carry a Go pointer across the boundary
// safely for a long-lived handle, so (like most embeddable language
// runtimes) the ABI exposes one process-wide instance rather than an
// opaque handle type.
var (
	globalMu sync.Mutex
	global   *Bridge
)

//export corelisp_init
func corelisp_init() C.int {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return 0
	}
	global = NewBridge(jit.NewReferenceEngine())
	return 0
}

//export corelisp_load_object
func corelisp_load_object(data *C.char, length C.size_t, entrySymbol *C.char) C.int {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b == nil {
		return -1
	}
	bytes := C.GoBytes(unsafe.Pointer(data), C.int(length))
	_, err := b.LoadObject(context.Background(), bytes, C.GoString(entrySymbol))
	if err != nil {
		return -1
	}
	return 0
}

//export corelisp_find_symbol
func corelisp_find_symbol(mangledName *C.char) C.int {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b == nil {
		return 0
	}
	_, ok := b.FindSymbol(C.GoString(mangledName))
	if ok {
		return 1
	}
	return 0
}

//export corelisp_configure_remote
func corelisp_configure_remote(host *C.char, port C.int) {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b == nil {
		return
	}
	b.ConfigureRemote(C.GoString(host) + ":" + itoa(int(port)))
}

//export corelisp_connect_remote
func corelisp_connect_remote() C.int {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b == nil || b.ConnectRemote() != nil {
		return -1
	}
	return 0
}

//export corelisp_disconnect_remote
func corelisp_disconnect_remote() {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b != nil {
		_ = b.DisconnectRemote()
	}
}

//export corelisp_remote_active
func corelisp_remote_active() C.int {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b != nil && b.RemoteActive() {
		return 1
	}
	return 0
}

// corelisp_eval evaluates code in ns, returning a newly allocated
// C string the caller must free with corelisp_free_string (spec §6:
// "evaluate a string", "all strings are UTF-8").
//
//export corelisp_eval
func corelisp_eval(ns, code *C.char) *C.char {
	globalMu.Lock()
	b := global
	globalMu.Unlock()
	if b == nil {
		return nil
	}
	result, err := b.Eval(context.Background(), C.GoString(ns), C.GoString(code))
	if err != nil {
		return C.CString("error: " + err.Error())
	}
	return C.CString(result)
}

//export corelisp_free_string
func corelisp_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
