// ABOUTME: Airwave high-level API package
// ABOUTME: Receiver and Sender wrap the playout and capture pipelines
// Package airwave provides a high-level API for LAN audio broadcast.
//
// A Sender captures fixed-size PCM frames, stamps each with the wall clock
// and sends one UDP datagram per frame to a broadcast or multicast address.
// A Receiver queues valid frames in arrival order and plays them after a
// fixed startup buffer.
//
// Receiver example:
//
//	r, err := airwave.NewReceiver(airwave.ReceiverConfig{
//	    OutputBackend: "oto",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = r.Run(ctx)
//
// Sender example:
//
//	s, err := airwave.NewSender(airwave.SenderConfig{
//	    InputKind: "tone",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = s.Run(ctx)
//
// Both sides must agree on the audio format out of band; the default is
// s16le mono 44100 Hz with 1024-sample frames on port 5005.
package airwave
