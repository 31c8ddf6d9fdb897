// Package pcom assembles pervasive applications out of the devices
// that happen to be around.
//
// Contracts (package 'contract') describe what an application demands
// and what providers offer.  Package 'assembly' walks an
// application's demands and binds each one to a discovered template,
// backtracking when a choice runs out of room.  Package 'assembler'
// serves that as a session protocol over HTTP and websockets.
//
// The daemon is cmd/pcomd, and cmd/pcomctl is a command-line helper.
package pcom
