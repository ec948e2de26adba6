// Package lxi provides a client for SCPI/LXI style instruments that speak ASCII commands and
// IEEE 488.2 block replies over a raw TCP socket (typically port 5025).
//
// A Device owns at most one TCP connection to a fixed endpoint. Commands are written with
// Send and exactly one reply is read with Receive, which returns a [frame.Response]
// classified as text or binary:
//
//	cfg, err := lxi.NewDeviceConfig("192.168.1.20", lxi.DefaultPort, lxi.WithTimeout(2*time.Second))
//	if err != nil {
//		return err
//	}
//	dev, err := lxi.NewDevice(cfg)
//	if err != nil {
//		return err
//	}
//	if err := dev.Connect(ctx); err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	resp, err := dev.Query([]byte("*IDN?"))
//
// # Timeouts
//
// The device timeout applies to the connect attempt and independently to the read and write
// halves of the connection; it is re-armed before every socket read or write. Zero disables
// it. SendTimeout, ReceiveTimeout and QueryTimeout override a half for one call only and
// always restore the previous value, on failure too.
//
// # Errors
//
// Every failure is an [*OpError] naming the failed phase. It matches exactly one of the
// sentinel kinds (ErrTimeout, ErrConnectionClosed, ErrMalformedFrame, ...) with errors.Is.
// Nothing is retried. A receive that times out before the first byte of a reply leaves the
// stream in sync and may simply be repeated. A receive that fails after consuming part of a
// frame marks the connection desynced: every later Receive, Query and QueryTimeout fails with
// ErrDesync until Reconnect.
//
// # Concurrency
//
// Send, Receive and Query serialize on a request lock, and Query holds it across the command
// and its reply. Callers pairing Send and Receive themselves must serialize the pair. Calling
// Disconnect from another goroutine closes the socket and unblocks a pending Send or Receive.
package lxi
