package statestream

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
*/
import "C"

import "unsafe"

//export go_stream_read
func go_stream_read(stream *C.clap_istream_t, buffer unsafe.Pointer, size C.uint64_t) C.int64_t {
	s, ok := fromHandle(stream.ctx)
	if !ok || buffer == nil {
		return -1
	}
	dst := unsafe.Slice((*byte)(buffer), int(size))
	return C.int64_t(s.read(dst))
}

//export go_stream_write
func go_stream_write(stream *C.clap_ostream_t, buffer unsafe.Pointer, size C.uint64_t) C.int64_t {
	s, ok := fromHandle(stream.ctx)
	if !ok || buffer == nil {
		return -1
	}
	src := unsafe.Slice((*byte)(buffer), int(size))
	return C.int64_t(s.write(src))
}
