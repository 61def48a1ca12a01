package iso7816

import (
	"fmt"
)

// The Client is a high-level driver over the physical connection. It owns
// the ISO 7816-3 transport behaviors that T=0 leaks into the application
// layer:
//
// 1. "61 XX" (response available): the card holds XX more bytes; the client
//    issues GET RESPONSE with Le = XX and keeps collecting.
// 2. "6C XX" (wrong length): the card rejected the Le we sent and suggests
//    XX; the client re-sends the same command with Le = XX.
//
// Both are synchronous continuations of the same logical operation: Send
// does not return until the chain has played out, so the next command can
// never interleave with a half-finished exchange. The card channel is
// half-duplex and exactly one command is ever in flight; no locking is done
// here because serialization is upheld by construction (one Client, one
// caller, one card).

// Transmitter abstracts the physical card connection: raw command bytes in,
// raw response bytes (including SW1/SW2) out. It is the single external
// capability this module consumes; errors from it mean the transport itself
// failed, never that the card rejected a command.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// TransmitterFunc adapts a plain function to the Transmitter interface.
type TransmitterFunc func(cmd []byte) ([]byte, error)

// Transmit implements Transmitter.
func (f TransmitterFunc) Transmit(cmd []byte) ([]byte, error) {
	return f(cmd)
}

// Defensive ceiling on protocol continuations for a single logical
// command. A healthy card converges in one or two; a card that keeps
// answering 61XX/6CXX forever is broken and must not wedge the caller.
const maxContinuations = 16

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and runs the 61XX/6CXX continuation loop,
// returning the full trace of physical exchanges.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace
	current := cmd

	for i := 0; i < maxContinuations; i++ {
		rawCmd, err := current.Bytes()
		if err != nil {
			return trace, fmt.Errorf("encoding error: %w", err)
		}

		rawResp, err := c.Card.Transmit(rawCmd)
		if err != nil {
			return trace, fmt.Errorf("transmission error: %w", err)
		}

		resp, err := ParseResponseAPDU(rawResp)
		if err != nil {
			return trace, err
		}

		trace = append(trace, Transaction{Command: current, Response: resp})

		sw1 := resp.Status.SW1()
		sw2 := resp.Status.SW2()

		switch {
		case sw1 == 0x61:
			// More data waiting: GET RESPONSE on the same class.
			current = NewCommandAPDU(current.Cla, InsGetResponse, 0x00, 0x00, nil, int(sw2))

		case sw1 == 0x6C:
			// Wrong Le: clone the command with the length the card wants.
			// 0x00 would re-encode as "no Le", so it maps to 256.
			retry := *current
			retry.Ne = int(sw2)
			if sw2 == 0x00 {
				retry.Ne = MaxShortLe
			}
			current = &retry

		default:
			return trace, nil
		}
	}

	return trace, fmt.Errorf("protocol continuation did not converge after %d exchanges", maxContinuations)
}

// Exchange sends a command and returns the assembled final response. This
// is the call sites' workhorse: internal retries are invisible and the
// returned response carries all data under the final status word.
func (c *Client) Exchange(cmd *CommandAPDU) (*ResponseAPDU, error) {
	trace, err := c.Send(cmd)
	if err != nil {
		return nil, err
	}
	return trace.Assembled(), nil
}
