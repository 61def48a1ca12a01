package handler

import (
	"fmt"
	"sort"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// registration pairs a handler with its tie-break priority.
type registration struct {
	handler  CardHandler
	priority int
}

// Detected is one entry of the ranked detection result.
type Detected struct {
	Handler  CardHandler
	Result   DetectionResult
	Priority int
}

// Registry holds the registered handlers and the currently active one.
// It is built once at startup and passed by value reference to whoever
// orchestrates a reader session; there is no package-level instance.
type Registry struct {
	regs   []registration
	active CardHandler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler. Priority only breaks ties between equal
// detection confidences; higher wins. Registration happens at startup
// and the set is treated as immutable afterwards.
func (r *Registry) Register(h CardHandler, priority int) {
	r.regs = append(r.regs, registration{handler: h, priority: priority})
}

// Detect runs every registered handler against the card, sequentially.
// Handlers share the one half-duplex channel and a trial SELECT changes
// the card's selected application, so parallel probing would corrupt
// sibling detections.
//
// The result keeps only handlers that reported a match, sorted by
// confidence descending, ties broken by registration priority
// descending. An empty list is not an error; it means nobody recognized
// the card.
func (r *Registry) Detect(card *atr.ATR, client *iso7816.Client) []Detected {
	var results []Detected
	for _, reg := range r.regs {
		res := reg.handler.Detect(card, client)
		if !res.Detected {
			continue
		}
		results = append(results, Detected{
			Handler:  reg.handler,
			Result:   res,
			Priority: reg.priority,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Result.Confidence != results[j].Result.Confidence {
			return results[i].Result.Confidence > results[j].Result.Confidence
		}
		return results[i].Priority > results[j].Priority
	})

	return results
}

// Activate marks the named handler as active for subsequent Commands,
// Execute and Interrogate calls.
func (r *Registry) Activate(name string) error {
	for _, reg := range r.regs {
		if reg.handler.Name() == name {
			r.active = reg.handler
			return nil
		}
	}
	return fmt.Errorf("no handler registered under %q", name)
}

// Active returns the currently active handler, or nil.
func (r *Registry) Active() CardHandler {
	return r.active
}

// Commands forwards to the active handler's catalog.
func (r *Registry) Commands(meta map[string]string) ([]CardCommand, error) {
	if r.active == nil {
		return nil, ErrNoActiveHandler
	}
	return r.active.Commands(meta), nil
}

// Execute forwards a command to the active handler.
func (r *Registry) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	if r.active == nil {
		return nil, ErrNoActiveHandler
	}
	return r.active.Execute(client, commandID, params)
}

// Interrogate forwards to the active handler.
func (r *Registry) Interrogate(client *iso7816.Client) (*Report, error) {
	if r.active == nil {
		return nil, ErrNoActiveHandler
	}
	return r.active.Interrogate(client)
}

// NewDefaultRegistry builds a registry with every known handler. The
// priorities order the families by how decisive their detection is:
// payment and identity applets select cleanly, storage cards only ever
// match on ATR.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewEMV(), 100)
	r.Register(NewPIV(), 90)
	r.Register(NewOpenPGP(), 85)
	r.Register(NewFIDO(), 80)
	r.Register(NewEID(), 70)
	r.Register(NewHealth(), 65)
	r.Register(NewPKI(), 60)
	r.Register(NewTransport(), 55)
	r.Register(NewSIM(), 50)
	r.Register(NewJavaCard(), 40)
	r.Register(NewMifare(), 10)
	return r
}
