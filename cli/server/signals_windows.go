//go:build windows

package server

import "syscall"

// SIGHUP is never delivered on Windows, so the log level can't be reloaded.
const sighup = syscall.SIGHUP
