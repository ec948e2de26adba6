package lxi

import "sync/atomic"

// ConnState is the connection state of a Device.
type ConnState uint32

const (
	DisconnectedState ConnState = iota
	ConnectingState
	ConnectedState
	DisconnectingState
)

func (s ConnState) String() string {
	switch s {
	case DisconnectedState:
		return "Disconnected"
	case ConnectingState:
		return "Connecting"
	case ConnectedState:
		return "Connected"
	case DisconnectingState:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// atomicConnState guards the connect/disconnect transitions. Only one goroutine can win each
// transition, which is what keeps a Device at zero or one connection.
type atomicConnState struct {
	state atomic.Uint32
}

func (st *atomicConnState) Get() ConnState {
	return ConnState(st.state.Load())
}

func (st *atomicConnState) IsConnected() bool {
	return st.Get() == ConnectedState
}

func (st *atomicConnState) toConnecting() bool {
	return st.state.CompareAndSwap(uint32(DisconnectedState), uint32(ConnectingState))
}

func (st *atomicConnState) toConnected() bool {
	return st.state.CompareAndSwap(uint32(ConnectingState), uint32(ConnectedState))
}

func (st *atomicConnState) toDisconnecting() bool {
	return st.state.CompareAndSwap(uint32(ConnectedState), uint32(DisconnectingState))
}

func (st *atomicConnState) toDisconnected() {
	st.state.Store(uint32(DisconnectedState))
}
