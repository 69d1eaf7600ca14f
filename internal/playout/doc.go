// ABOUTME: Receiver playout package
// ABOUTME: Listener, FIFO queue and playback engine connected only by the queue
// Package playout turns a stream of airwave datagrams into steady playback.
//
// A Listener decodes datagrams and pushes payloads onto a Queue; an Engine
// waits a fixed startup buffer and then drains the queue into a Sink in
// strict arrival order. The two share nothing but the queue and, optionally,
// a Stats value.
package playout
