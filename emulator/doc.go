// Package emulator provides a minimal instrument that speaks the same wire format as a
// SCPI/LXI raw socket device.
//
// It accepts any number of TCP clients, reads one command line at a time and answers with the
// reply chosen by a Responder. The default Table answers
//
//	*IDN?  ->  "Emulator\r\n"
//	DATA?  ->  "#14" 00 FF 0A 80 "\r\n"
//
// and every other command with "Error\r\n". An emulator is meant for tests, examples and
// `lxictl emulate`; it has no notion of instrument state.
package emulator
