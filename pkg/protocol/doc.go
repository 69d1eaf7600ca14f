// ABOUTME: Airwave wire protocol package
// ABOUTME: Defines the datagram format and its codec
// Package protocol implements the airwave wire format.
//
// Every datagram carries exactly one audio frame:
//
//	<ASCII decimal seconds>||<raw PCM frame>
//
// There is no sequence number, no negotiation and no acknowledgment. The
// PCM format is agreed out of band (see package audio).
//
// Example:
//
//	data := protocol.Encode(protocol.Packet{
//	    Timestamp: protocol.TimestampOf(time.Now()),
//	    Payload:   frame,
//	})
//	pkt, err := protocol.Decode(data)
//	if errors.Is(err, protocol.ErrMalformed) {
//	    // drop it
//	}
package protocol
