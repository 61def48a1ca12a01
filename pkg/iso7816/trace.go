package iso7816

// A Transaction is the atomic unit of ISO 7816-3 communication: one command
// APDU sent by the terminal, one response APDU sent back by the card.
//
// A Trace is the chronological sequence of transactions that fulfilled one
// logical request. A single intent ("select this application") can take
// several physical exchanges when the card answers 61XX (fetch the rest
// with GET RESPONSE) or 6CXX (retry with the corrected Le); the trace
// records the whole conversation.

// Transaction represents a completed command-response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions representing the full history of one
// logical exchange, including 61XX/6CXX continuations.
type Trace []Transaction

// Last returns the final transaction of the trace, or nil when empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks whether the final transaction succeeded, which decides
// the outcome of the whole logical operation.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Assembled collapses the trace into the response the caller actually
// wants: the data fields of every transaction concatenated in order, under
// the final status word. Intermediate 61XX/6CXX statuses disappear.
func (t Trace) Assembled() *ResponseAPDU {
	last := t.Last()
	if last == nil {
		return nil
	}

	var data []byte
	for i := range t {
		if t[i].Response != nil {
			data = append(data, t[i].Response.Data...)
		}
	}

	return &ResponseAPDU{Data: data, Status: last.Response.Status}
}
