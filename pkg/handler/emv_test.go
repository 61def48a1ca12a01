package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectPPSEWire = "00A404000E325041592E5359532E4444463031"
	selectPSEWire  = "00A404000E315041592E5359532E4444463031"
	selectVisaWire = "00A4040007A0000000031010"
)

func TestEMVDetectViaBrandAID(t *testing.T) {
	client, _ := newScriptedClient(map[string][]byte{
		// No payment directory; the Visa AID answers.
		selectVisaWire: {
			0x6F, 0x11,
			0x84, 0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
			0xA5, 0x06,
			0x50, 0x04, 'V', 'I', 'S', 'A',
			0x90, 0x00,
		},
	})

	res := NewEMV().Detect(nil, client)

	require.True(t, res.Detected)
	assert.Equal(t, confidenceAID, res.Confidence)
	assert.Equal(t, "A0000000031010", res.Metadata["aid"])
	assert.Equal(t, "VISA", res.Metadata["label"])
}

func TestEMVDetectViaPPSE(t *testing.T) {
	client, card := newScriptedClient(map[string][]byte{
		selectPPSEWire: {0x6F, 0x00, 0x90, 0x00},
	})

	res := NewEMV().Detect(nil, client)

	require.True(t, res.Detected)
	assert.Equal(t, "2PAY.SYS.DDF01", res.Metadata["directory"])
	// The directory hit must short-circuit the brand probing.
	assert.Len(t, card.log, 1)
}

func TestEMVDetectNothing(t *testing.T) {
	client, _ := newScriptedClient(nil)
	assert.False(t, NewEMV().Detect(nil, client).Detected)

	// Offline: payment detection needs a live card.
	assert.False(t, NewEMV().Detect(nil, nil).Detected)
}

func TestEMVInterrogate(t *testing.T) {
	client, _ := newScriptedClient(map[string][]byte{
		// PPSE lists one Visa application.
		selectPPSEWire: {
			0x6F, 0x26,
			0x84, 0x0E, '2', 'P', 'A', 'Y', '.', 'S', 'Y', 'S', '.', 'D', 'D', 'F', '0', '1',
			0xA5, 0x14,
			0xBF, 0x0C, 0x11,
			0x61, 0x0F,
			0x4F, 0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
			0x50, 0x04, 'V', 'I', 'S', 'A',
			0x90, 0x00,
		},
		// Application FCI without a PDOL.
		selectVisaWire: {
			0x6F, 0x11,
			0x84, 0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
			0xA5, 0x06,
			0x50, 0x04, 'V', 'I', 'S', 'A',
			0x90, 0x00,
		},
		// GPO, format 1: AIP 1C00, AFL = SFI 2 record 1.
		"80A80000028300": {
			0x80, 0x06, 0x1C, 0x00, 0x10, 0x01, 0x01, 0x00,
			0x90, 0x00,
		},
		// The single AFL record with cardholder data.
		"00B2011400": {
			0x70, 0x11,
			0x5F, 0x20, 0x08, 'J', 'O', 'H', 'N', ' ', 'D', 'O', 'E',
			0x5F, 0x24, 0x03, 0x29, 0x07, 0x31,
			0x90, 0x00,
		},
	})

	report, err := NewEMV().Interrogate(client)
	require.NoError(t, err)

	require.Len(t, report.Applications, 1)
	assert.Equal(t, []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}, report.Applications[0].AID)
	assert.Equal(t, "VISA", report.Applications[0].Label)

	assert.Equal(t, "JOHN DOE", report.Fields["cardholder_name"])
	assert.Equal(t, "290731", report.Fields["expiry_date"])
}

func TestEMVInterrogateUnrecognized(t *testing.T) {
	client, _ := newScriptedClient(nil)

	report, err := NewEMV().Interrogate(client)
	require.NoError(t, err)
	assert.Empty(t, report.Applications)
}

func TestEMVExecute(t *testing.T) {
	client, card := newScriptedClient(map[string][]byte{
		selectVisaWire: {0x90, 0x00},
		"00B2021C00":   {0x70, 0x00, 0x90, 0x00}, // SFI 3 record 2
	})
	h := NewEMV()

	t.Run("select_application", func(t *testing.T) {
		resp, err := h.Execute(client, "select_application", Params{"aid": "A0000000031010"})
		require.NoError(t, err)
		assert.True(t, resp.IsSuccess())
	})

	t.Run("select_application without aid", func(t *testing.T) {
		_, err := h.Execute(client, "select_application", Params{})
		assert.ErrorIs(t, err, ErrMissingParam)
	})

	t.Run("read_record", func(t *testing.T) {
		resp, err := h.Execute(client, "read_record", Params{"sfi": "3", "record": "2"})
		require.NoError(t, err)
		assert.True(t, resp.IsSuccess())
		assert.Equal(t, "00B2021C00", card.log[len(card.log)-1])
	})

	t.Run("get_data with bad tag length", func(t *testing.T) {
		_, err := h.Execute(client, "get_data", Params{"tag": "9F"})
		assert.ErrorIs(t, err, ErrInvalidParam)
	})
}
