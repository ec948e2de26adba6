package lxi

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics for a device.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint64
	// ConnectErrCount indicates the number of failed connects.
	ConnectErrCount atomic.Uint64
	// DisconnectCount indicates the number of released connections.
	DisconnectCount atomic.Uint64

	// SendCount indicates the number of commands written.
	SendCount atomic.Uint64
	// SendErrCount indicates the number of failed sends.
	SendErrCount atomic.Uint64

	// TextRecvCount indicates the number of text replies received.
	TextRecvCount atomic.Uint64
	// BinaryRecvCount indicates the number of binary block replies received.
	BinaryRecvCount atomic.Uint64
	// RecvErrCount indicates the number of failed receives.
	RecvErrCount atomic.Uint64

	// TimeoutCount indicates the number of operations that failed with ErrTimeout.
	TimeoutCount atomic.Uint64
}

func (m *DeviceMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *DeviceMetrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *DeviceMetrics) incDisconnectCount() {
	m.DisconnectCount.Add(1)
}

func (m *DeviceMetrics) incSendCount() {
	m.SendCount.Add(1)
}

func (m *DeviceMetrics) incSendErrCount() {
	m.SendErrCount.Add(1)
}

func (m *DeviceMetrics) incRecvCount(binary bool) {
	if binary {
		m.BinaryRecvCount.Add(1)
	} else {
		m.TextRecvCount.Add(1)
	}
}

func (m *DeviceMetrics) incRecvErrCount() {
	m.RecvErrCount.Add(1)
}

func (m *DeviceMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}
