//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package server

import "syscall"

// reuseAddr leaves socket options alone where x/sys/unix has no SO_REUSEADDR.
func reuseAddr(_, _ string, _ syscall.RawConn) error { return nil }
