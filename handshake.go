// RTMP handshake: plain (unencrypted, non-digest) C0/C1/C2 <-> S0/S1/S2
// exchange (spec §4.B). The digest/HMAC handshake variant some servers
// require is out of scope; this client only ever sends the plain form.

package rtmp

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const (
	handshakeTimeFieldSize   = 4
	handshakeZeroFieldSize   = 4
	handshakeRandomFieldSize = handshakeSigSize - handshakeTimeFieldSize - handshakeZeroFieldSize
)

// performHandshake drives the client side of the handshake over t and
// returns once S2 has been validated against the C1 we sent.
func performHandshake(t *transport) error {
	startTime := time.Now()

	c1, err := buildC1(startTime)
	if err != nil {
		return err
	}

	if err := t.write(append([]byte{rtmpVersion}, c1...)); err != nil {
		return err
	}

	s0, err := t.readFull(1)
	if err != nil {
		return err
	}
	if s0[0] != rtmpVersion {
		return &HandshakeFailed{Reason: "server announced unsupported protocol version"}
	}

	s1, err := t.readFull(handshakeSigSize)
	if err != nil {
		return err
	}

	c2 := buildC2(c1, s1)
	if err := t.write(c2); err != nil {
		return err
	}

	s2, err := t.readFull(handshakeSigSize)
	if err != nil {
		return err
	}

	if !validateS2(c1, s2) {
		return &HandshakeFailed{Reason: "S2 echo did not match C1"}
	}

	return nil
}

// buildC1 assembles the C1 signature: time(4) + zero(4) + random(1528).
// The time field is milliseconds elapsed since startTime, per spec §4.B.
func buildC1(startTime time.Time) ([]byte, error) {
	buf := make([]byte, handshakeSigSize)

	binary.BigEndian.PutUint32(buf[0:4], uint32(time.Since(startTime).Milliseconds()))
	// bytes 4:8 are the zero field, already zero from make()

	if _, err := rand.Read(buf[8:]); err != nil {
		return nil, &HandshakeFailed{Reason: "could not generate random signature: " + err.Error()}
	}

	return buf, nil
}

// buildC2 echoes S1's time and random payload back, per spec §4.B.
func buildC2(c1 []byte, s1 []byte) []byte {
	buf := make([]byte, handshakeSigSize)
	copy(buf[0:4], s1[0:4])               // time, echoed from S1
	copy(buf[4:8], c1[0:4])                // time2, our own C1 time
	copy(buf[8:], s1[8:handshakeSigSize]) // random, echoed from S1
	return buf
}

// validateS2 checks that S2's time field (its first 4 bytes) and its
// random-echo field match what we sent in C1.
func validateS2(c1 []byte, s2 []byte) bool {
	sentTime := c1[0:4]
	echoedTime := s2[0:4]
	for i := range sentTime {
		if sentTime[i] != echoedTime[i] {
			return false
		}
	}

	sentRandom := c1[8:handshakeSigSize]
	echoedRandom := s2[8:handshakeSigSize]
	for i := range sentRandom {
		if sentRandom[i] != echoedRandom[i] {
			return false
		}
	}

	return true
}
