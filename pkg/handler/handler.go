// Package handler holds the card-type handlers: one implementation per
// family of cards (EMV, PIV, OpenPGP, ...), all behind a single contract,
// plus the registry that runs detection across them and routes commands
// to the active one.
package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// Hard failures. These signal an integration bug on the caller's side,
// never a card condition: a card rejecting a command comes back as a
// normal response with a non-9000 status.
var (
	ErrUnknownCommand  = errors.New("unknown command id")
	ErrMissingParam    = errors.New("missing required parameter")
	ErrInvalidParam    = errors.New("invalid parameter value")
	ErrNoActiveHandler = errors.New("no active handler")
)

// CardHandler is the contract every card-family implementation satisfies.
type CardHandler interface {
	// Name is the stable identifier used for activation and display.
	Name() string

	// Detect decides whether this handler recognizes the card. It may
	// issue trial APDUs through the client; client can be nil when only
	// an ATR is available, in which case handlers fall back to their
	// ATR patterns alone.
	Detect(card *atr.ATR, client *iso7816.Client) DetectionResult

	// Commands lists the command catalog, optionally specialized by the
	// detection metadata (a handler can hide commands that make no sense
	// for the concrete card it detected).
	Commands(meta map[string]string) []CardCommand

	// Execute runs one catalog command. Unknown ids and missing required
	// parameters fail hard; card-level rejection is carried in the
	// returned response's status word.
	Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error)

	// Interrogate walks the card and assembles a report of what it found.
	Interrogate(client *iso7816.Client) (*Report, error)
}

// DetectionResult is produced once per (handler, card) pair and never
// mutated afterward.
type DetectionResult struct {
	Detected   bool
	Confidence int // 0-100
	CardType   string
	Metadata   map[string]string
}

// Detection confidence conventions shared by all handlers: a successful
// application selection is near-certain, an ATR pattern match alone is a
// plausible hint.
const (
	confidenceAID = 95
	confidenceATR = 60
)

// ParamType tells the caller how to render and validate a parameter.
type ParamType string

const (
	ParamHex    ParamType = "hex"
	ParamNumber ParamType = "number"
	ParamString ParamType = "string"
	ParamSelect ParamType = "select"
)

// CommandParam describes one parameter of a catalog command.
type CommandParam struct {
	ID       string
	Name     string
	Type     ParamType
	Required bool
	Default  string
	Options  []string // for ParamSelect
}

// CardCommand is one entry of a handler's command catalog.
type CardCommand struct {
	ID          string
	Name        string
	Description string
	Category    string
	Params      []CommandParam
}

// Params carries the caller-supplied parameter values, keyed by param id.
type Params map[string]string

// Hex returns a parameter parsed as loose hex bytes.
func (p Params) Hex(id string) ([]byte, error) {
	raw, ok := p[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, id)
	}
	data := hexutil.ParseHexInput(raw)
	if data == nil {
		return nil, fmt.Errorf("%w: %s is not valid hex: %q", ErrInvalidParam, id, raw)
	}
	return data, nil
}

// Number returns a parameter parsed as a decimal integer.
func (p Params) Number(id string) (int, error) {
	raw, ok := p[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, id)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidParam, id, raw)
	}
	return n, nil
}

// String returns a parameter verbatim, or the empty string when absent.
func (p Params) String(id string) string {
	return p[id]
}

// checkRequired validates the presence of every required parameter of cmd,
// substituting declared defaults for absent optional ones.
func checkRequired(cmd CardCommand, p Params) error {
	for _, param := range cmd.Params {
		if _, ok := p[param.ID]; ok {
			continue
		}
		if param.Required {
			return fmt.Errorf("%w: %s (command %s)", ErrMissingParam, param.ID, cmd.ID)
		}
		if param.Default != "" {
			p[param.ID] = param.Default
		}
	}
	return nil
}

// findCommand looks an id up in a catalog.
func findCommand(catalog []CardCommand, id string) (CardCommand, error) {
	for _, cmd := range catalog {
		if cmd.ID == id {
			return cmd, nil
		}
	}
	return CardCommand{}, fmt.Errorf("%w: %s", ErrUnknownCommand, id)
}

// Application is one application discovered during interrogation.
type Application struct {
	AID   []byte
	Label string
}

// Report is the outcome of a handler's interrogation walk.
type Report struct {
	CardType     string
	Applications []Application
	Fields       map[string]string
}

func newReport(cardType string) *Report {
	return &Report{CardType: cardType, Fields: map[string]string{}}
}
