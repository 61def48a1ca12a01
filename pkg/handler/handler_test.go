package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// scriptedCard answers from a wire-hex keyed map; anything unscripted
// gets "file not found".
type scriptedCard struct {
	responses map[string][]byte
	log       []string
}

func (c *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	key := hexutil.Compact(cmd)
	c.log = append(c.log, key)
	if resp, ok := c.responses[key]; ok {
		return resp, nil
	}
	return []byte{0x6A, 0x82}, nil
}

func newScriptedClient(responses map[string][]byte) (*iso7816.Client, *scriptedCard) {
	card := &scriptedCard{responses: responses}
	return iso7816.NewClient(card), card
}

func TestParamsHex(t *testing.T) {
	p := Params{"aid": "A0 00 00 00 03 10 10", "bad": "XYZ"}

	aid, err := p.Hex("aid")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}, aid)

	_, err = p.Hex("bad")
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = p.Hex("absent")
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestParamsNumber(t *testing.T) {
	p := Params{"sfi": "2", "bad": "two"}

	n, err := p.Number("sfi")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = p.Number("bad")
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = p.Number("absent")
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestCheckRequired(t *testing.T) {
	cmd := CardCommand{
		ID: "test",
		Params: []CommandParam{
			{ID: "needed", Required: true},
			{ID: "optional", Required: false, Default: "A"},
		},
	}

	t.Run("Missing required", func(t *testing.T) {
		err := checkRequired(cmd, Params{})
		assert.ErrorIs(t, err, ErrMissingParam)
	})

	t.Run("Default substituted", func(t *testing.T) {
		p := Params{"needed": "1"}
		require.NoError(t, checkRequired(cmd, p))
		assert.Equal(t, "A", p.String("optional"))
	})

	t.Run("Caller value wins over default", func(t *testing.T) {
		p := Params{"needed": "1", "optional": "B"}
		require.NoError(t, checkRequired(cmd, p))
		assert.Equal(t, "B", p.String("optional"))
	})
}

func TestFindCommand(t *testing.T) {
	catalog := []CardCommand{{ID: "a"}, {ID: "b"}}

	cmd, err := findCommand(catalog, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", cmd.ID)

	_, err = findCommand(catalog, "zzz")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestUnknownCommandIsHardFailure(t *testing.T) {
	client, _ := newScriptedClient(nil)

	for _, h := range []CardHandler{
		NewEMV(), NewPIV(), NewOpenPGP(), NewFIDO(), NewTransport(),
		NewSIM(), NewJavaCard(), NewMifare(), NewEID(), NewHealth(), NewPKI(),
	} {
		_, err := h.Execute(client, "no_such_command", Params{})
		assert.ErrorIs(t, err, ErrUnknownCommand, h.Name())
	}
}

func TestProbeAIDs(t *testing.T) {
	visa := []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}
	client, card := newScriptedClient(map[string][]byte{
		"00A4040007A0000000031010": {0x90, 0x00},
	})

	t.Run("First accepted AID wins", func(t *testing.T) {
		i, resp := probeAIDs(client, [][]byte{
			{0xA0, 0x00, 0x00, 0x00, 0x04, 0x10, 0x10},
			visa,
		})
		require.NotNil(t, resp)
		assert.Equal(t, 1, i)
		assert.True(t, resp.IsSuccess())
		// Both candidates were actually tried, in order.
		assert.Len(t, card.log, 2)
	})

	t.Run("No match", func(t *testing.T) {
		i, resp := probeAIDs(client, [][]byte{{0xD2, 0x76, 0x00}})
		assert.Equal(t, -1, i)
		assert.Nil(t, resp)
	})

	t.Run("Nil client", func(t *testing.T) {
		i, resp := probeAIDs(nil, [][]byte{visa})
		assert.Equal(t, -1, i)
		assert.Nil(t, resp)
	})
}
